// Package feedback turns stored AI feedback payloads into a typed view.
//
// Payloads come from an external advisory generator and may be absent,
// malformed, partially populated or written by an older generator. Decoding
// therefore never fails: every section is decoded on its own and anything
// that cannot be read is left absent (nil).
package feedback

import "encoding/json"

// SchemaVersion is the payload version produced by Encode.
const SchemaVersion = "v1"

// View is the structured form of an AI feedback payload. A nil field means
// the payload did not carry a readable value for it.
type View struct {
	Version           *string            `json:"version,omitempty"`
	Grade             *string            `json:"grade,omitempty"`
	FeedbackText      *string            `json:"feedbackText,omitempty"`
	ActionPlan        []string           `json:"actionPlan,omitempty"`
	PracticeExercises []PracticeExercise `json:"practiceExercises,omitempty"`
	DetailedAnalysis  *DetailedAnalysis  `json:"detailedAnalysis,omitempty"`
	OverallScore      *float64           `json:"overallScore,omitempty"`
}

// PracticeExercise is one suggested exercise.
type PracticeExercise struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Example     *string `json:"example,omitempty"`
}

// DetailedAnalysis holds the per-dimension breakdown. Each dimension is
// independently optional.
type DetailedAnalysis struct {
	Grammar    *GrammarAnalysis    `json:"grammar,omitempty"`
	Vocabulary *VocabularyAnalysis `json:"vocabulary,omitempty"`
	Structure  *StructureAnalysis  `json:"structure,omitempty"`
	Fluency    *NarrativeAnalysis  `json:"fluency,omitempty"`
	Content    *NarrativeAnalysis  `json:"content,omitempty"`
}

type GrammarAnalysis struct {
	Score       *float64 `json:"score,omitempty"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type VocabularyAnalysis struct {
	Score        *float64 `json:"score,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

type StructureAnalysis struct {
	Score    *float64 `json:"score,omitempty"`
	Comments []string `json:"comments,omitempty"`
}

// NarrativeAnalysis is used for fluency and content, which carry free text.
type NarrativeAnalysis struct {
	Score    *float64 `json:"score,omitempty"`
	Feedback *string  `json:"feedback,omitempty"`
}

// IsZero reports whether no section of the payload could be read.
func (v View) IsZero() bool {
	return v.Version == nil && v.Grade == nil && v.FeedbackText == nil &&
		v.ActionPlan == nil && v.PracticeExercises == nil &&
		v.DetailedAnalysis == nil && v.OverallScore == nil
}

// Encode serialises the view into the canonical camelCase payload, stamping
// the current schema version when the view has none.
func Encode(v View) (string, error) {
	if v.Version == nil {
		version := SchemaVersion
		v.Version = &version
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
