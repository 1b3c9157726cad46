package feedback

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type fields map[string]json.RawMessage

// Decode reads a stored payload. Absent, blank or unparsable input yields
// the zero View.
func Decode(raw *string) View {
	if raw == nil {
		return View{}
	}
	return DecodeString(*raw)
}

// DecodeString is Decode for a payload that is known to be present.
func DecodeString(raw string) View {
	root, ok := decodeObject(json.RawMessage(strings.TrimSpace(raw)))
	if !ok {
		return View{}
	}

	return View{
		Version:           decodeText(root.lookup("version")),
		Grade:             decodeText(root.lookup("grade")),
		FeedbackText:      decodeText(root.lookup("feedbackText", "feedback_text")),
		ActionPlan:        decodeTextList(root.lookup("actionPlan", "action_plan")),
		PracticeExercises: decodeExercises(root.lookup("practiceExercises", "practice_exercises")),
		DetailedAnalysis:  decodeAnalysis(root.lookup("detailedAnalysis", "detailed_analysis")),
		OverallScore:      decodeNumber(root.lookup("overallScore", "overall_score")),
	}
}

// lookup returns the first key that is present and not null.
func (f fields) lookup(keys ...string) json.RawMessage {
	for _, key := range keys {
		if raw, ok := f[key]; ok && !isNull(raw) {
			return raw
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeObject(raw json.RawMessage) (fields, bool) {
	if isNull(raw) {
		return nil, false
	}
	var object fields
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, false
	}
	return object, true
}

func decodeText(raw json.RawMessage) *string {
	if isNull(raw) {
		return nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return &value
}

func decodeNumber(raw json.RawMessage) *float64 {
	if isNull(raw) {
		return nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err == nil {
		return &value
	}
	// older generators wrote scores as strings
	if text := decodeText(raw); text != nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(*text), 64); err == nil {
			return &parsed
		}
	}
	return nil
}

// decodeTextList accepts a list of strings or a single string. Non-string
// list items are dropped.
func decodeTextList(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	if single := decodeText(raw); single != nil {
		return []string{*single}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if text := decodeText(item); text != nil {
			result = append(result, *text)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func decodeExercises(raw json.RawMessage) []PracticeExercise {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	result := make([]PracticeExercise, 0, len(items))
	for _, item := range items {
		object, ok := decodeObject(item)
		if !ok {
			continue
		}
		exercise := PracticeExercise{Example: decodeText(object.lookup("example"))}
		if title := decodeText(object.lookup("title")); title != nil {
			exercise.Title = *title
		}
		if description := decodeText(object.lookup("description")); description != nil {
			exercise.Description = *description
		}
		if exercise.Title == "" && exercise.Description == "" && exercise.Example == nil {
			continue
		}
		result = append(result, exercise)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func decodeAnalysis(raw json.RawMessage) *DetailedAnalysis {
	root, ok := decodeObject(raw)
	if !ok {
		return nil
	}

	analysis := DetailedAnalysis{}
	if grammar, ok := decodeObject(root.lookup("grammar")); ok {
		analysis.Grammar = &GrammarAnalysis{
			Score:       decodeNumber(grammar.lookup("score")),
			Issues:      decodeTextList(grammar.lookup("issues")),
			Suggestions: decodeTextList(grammar.lookup("suggestions")),
		}
	}
	if vocabulary, ok := decodeObject(root.lookup("vocabulary")); ok {
		analysis.Vocabulary = &VocabularyAnalysis{
			Score:        decodeNumber(vocabulary.lookup("score")),
			Strengths:    decodeTextList(vocabulary.lookup("strengths")),
			Improvements: decodeTextList(vocabulary.lookup("improvements")),
		}
	}
	if structure, ok := decodeObject(root.lookup("structure")); ok {
		analysis.Structure = &StructureAnalysis{
			Score:    decodeNumber(structure.lookup("score")),
			Comments: decodeTextList(structure.lookup("comments")),
		}
	}
	analysis.Fluency = decodeNarrative(root.lookup("fluency"))
	analysis.Content = decodeNarrative(root.lookup("content"))

	if analysis == (DetailedAnalysis{}) {
		return nil
	}
	return &analysis
}

func decodeNarrative(raw json.RawMessage) *NarrativeAnalysis {
	object, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	return &NarrativeAnalysis{
		Score:    decodeNumber(object.lookup("score")),
		Feedback: decodeText(object.lookup("feedback")),
	}
}
