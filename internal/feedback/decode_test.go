package feedback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(value string) *string { return &value }

func floatPtr(value float64) *float64 { return &value }

const fullPayload = `{
  "grade": "B+",
  "feedbackText": "Good work!",
  "actionPlan": ["Practice adjectives", "Review particles"],
  "practiceExercises": [
    {"title": "Adjective Practice", "description": "Use い-adjectives", "example": "高い山"},
    {"title": "Sentence Connection", "description": "Use conjunctions"}
  ],
  "detailedAnalysis": {
    "grammar": {"score": 90, "issues": ["Particle usage"], "suggestions": ["Review は and が"]},
    "vocabulary": {"score": 85, "strengths": ["Basic vocabulary"], "improvements": ["More variety"]},
    "structure": {"score": 80, "comments": ["Clear but simple"]},
    "fluency": {"score": 85, "feedback": "Natural flow"},
    "content": {"score": 85, "feedback": "Relevant"}
  },
  "overallScore": 85
}`

func TestDecodeAbsentAndMalformed(t *testing.T) {
	require.Equal(t, View{}, Decode(nil))
	require.Equal(t, View{}, Decode(strPtr("{not json")))
	require.Equal(t, View{}, Decode(strPtr("")))
	require.Equal(t, View{}, Decode(strPtr("null")))
	require.Equal(t, View{}, Decode(strPtr("[1,2,3]")))
	require.Equal(t, View{}, Decode(strPtr("Good work! Your kanji usage is accurate.")))
	require.True(t, Decode(strPtr("{}")).IsZero())
}

func TestDecodeGradeOnly(t *testing.T) {
	view := Decode(strPtr(`{"grade":"A"}`))
	require.Equal(t, View{Grade: strPtr("A")}, view)
}

func TestDecodeFullPayload(t *testing.T) {
	view := DecodeString(fullPayload)

	require.Equal(t, "B+", *view.Grade)
	require.Equal(t, "Good work!", *view.FeedbackText)
	require.Equal(t, []string{"Practice adjectives", "Review particles"}, view.ActionPlan)
	require.Len(t, view.PracticeExercises, 2)
	require.Equal(t, "高い山", *view.PracticeExercises[0].Example)
	require.Nil(t, view.PracticeExercises[1].Example)
	require.Equal(t, 85.0, *view.OverallScore)

	analysis := view.DetailedAnalysis
	require.NotNil(t, analysis)
	require.Equal(t, 90.0, *analysis.Grammar.Score)
	require.Equal(t, []string{"Review は and が"}, analysis.Grammar.Suggestions)
	require.Equal(t, []string{"More variety"}, analysis.Vocabulary.Improvements)
	require.Equal(t, []string{"Clear but simple"}, analysis.Structure.Comments)
	require.Equal(t, "Natural flow", *analysis.Fluency.Feedback)
	require.Equal(t, 85.0, *analysis.Content.Score)
}

func TestDecodeDegradesFieldByField(t *testing.T) {
	view := DecodeString(`{
	  "grade": 42,
	  "feedbackText": "Keep going",
	  "actionPlan": "Write every day",
	  "practiceExercises": [7, {"title": "Kanji drill", "description": "Write 山 ten times"}],
	  "detailedAnalysis": {"grammar": "broken", "fluency": {"score": "65", "feedback": "Flows well"}},
	  "overallScore": {"value": 3}
	}`)

	require.Nil(t, view.Grade)
	require.Equal(t, "Keep going", *view.FeedbackText)
	require.Equal(t, []string{"Write every day"}, view.ActionPlan)
	require.Equal(t, []PracticeExercise{{Title: "Kanji drill", Description: "Write 山 ten times"}}, view.PracticeExercises)
	require.Nil(t, view.DetailedAnalysis.Grammar)
	require.Nil(t, view.DetailedAnalysis.Vocabulary)
	require.Equal(t, 65.0, *view.DetailedAnalysis.Fluency.Score)
	require.Nil(t, view.OverallScore)
}

func TestDecodeSnakeCasePayload(t *testing.T) {
	view := DecodeString(`{
	  "feedback_text": "Your writing shows good effort.",
	  "overall_score": 72.5,
	  "grade": "C",
	  "action_plan": ["Practice writing complete sentences in Japanese"],
	  "practice_exercises": [{"title": "Sentence Building", "description": "Create 5 sentences", "example": "私は学生です。"}],
	  "detailed_analysis": {"structure": {"score": 70, "comments": "Good paragraph structure"}}
	}`)

	require.Equal(t, "Your writing shows good effort.", *view.FeedbackText)
	require.Equal(t, 72.5, *view.OverallScore)
	require.Len(t, view.ActionPlan, 1)
	require.Equal(t, "Sentence Building", view.PracticeExercises[0].Title)
	require.Equal(t, []string{"Good paragraph structure"}, view.DetailedAnalysis.Structure.Comments)
}

func TestDecodeNullFieldsAreAbsent(t *testing.T) {
	view := DecodeString(`{"grade": null, "feedbackText": null, "feedback_text": "fallback"}`)
	require.Nil(t, view.Grade)
	require.Equal(t, "fallback", *view.FeedbackText)
}

func TestDecodeEmptyListsAreAbsent(t *testing.T) {
	view := DecodeString(`{"actionPlan": [1, null], "practiceExercises": [1, 2, {}]}`)
	require.Nil(t, view.ActionPlan)
	require.Nil(t, view.PracticeExercises)
	require.True(t, view.IsZero())

	require.True(t, DecodeString(`{"actionPlan": [], "practiceExercises": []}`).IsZero())
}

func TestEncodeRoundTripsThroughDecode(t *testing.T) {
	original := View{
		Grade:        strPtr("B"),
		FeedbackText: strPtr("Good balance of content length."),
		ActionPlan:   []string{"Learn more vocabulary"},
		DetailedAnalysis: &DetailedAnalysis{
			Content: &NarrativeAnalysis{Score: floatPtr(85), Feedback: strPtr("Relevant")},
		},
		OverallScore: floatPtr(81),
	}

	encoded, err := Encode(original)
	require.NoError(t, err)
	require.NoError(t, Validate(encoded))

	decoded := DecodeString(encoded)
	require.Equal(t, SchemaVersion, *decoded.Version)
	decoded.Version = nil
	require.Equal(t, original, decoded)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(fullPayload))
	require.NoError(t, Validate(`{"grade":"A"}`))
	require.Error(t, Validate(`{"overallScore": 140}`))
	require.Error(t, Validate(`{"actionPlan": "not a list"}`))
	require.Error(t, Validate(`{not json`))
}
