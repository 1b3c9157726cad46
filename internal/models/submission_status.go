package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SubmissionStatus is the grading lifecycle position of a submission. The
// numeric values are persisted and exposed to clients, and they are ordered:
// a submission's status never decreases.
type SubmissionStatus int

const (
	SubmissionStatusDraft SubmissionStatus = iota
	SubmissionStatusSubmitted
	SubmissionStatusAIGraded
	SubmissionStatusTeacherGraded
	SubmissionStatusReviewed
)

var submissionStatusNames = map[SubmissionStatus]string{
	SubmissionStatusDraft:         "draft",
	SubmissionStatusSubmitted:     "submitted",
	SubmissionStatusAIGraded:      "ai_graded",
	SubmissionStatusTeacherGraded: "teacher_graded",
	SubmissionStatusReviewed:      "reviewed",
}

// submissionTransitions is the complete set of permitted status moves.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusDraft:         {SubmissionStatusDraft, SubmissionStatusSubmitted},
	SubmissionStatusSubmitted:     {SubmissionStatusAIGraded, SubmissionStatusTeacherGraded},
	SubmissionStatusAIGraded:      {SubmissionStatusTeacherGraded},
	SubmissionStatusTeacherGraded: {SubmissionStatusReviewed},
	SubmissionStatusReviewed:      {},
}

// String returns the lowercase label of the status.
func (s SubmissionStatus) String() string {
	if name, ok := submissionStatusNames[s]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is one of the known statuses.
func (s SubmissionStatus) Valid() bool {
	_, ok := submissionStatusNames[s]
	return ok
}

// CanTransitionTo reports whether the transition table allows s -> next.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	for _, candidate := range submissionTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s SubmissionStatus) IsTerminal() bool {
	return s.Valid() && len(submissionTransitions[s]) == 0
}

// ParseSubmissionStatus accepts either the numeric code or the label.
func ParseSubmissionStatus(value string) (SubmissionStatus, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if code, err := strconv.Atoi(trimmed); err == nil {
		status := SubmissionStatus(code)
		if !status.Valid() {
			return 0, fmt.Errorf("unknown submission status %d", code)
		}
		return status, nil
	}
	for status, name := range submissionStatusNames {
		if name == trimmed {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown submission status %q", value)
}
