package examiner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/gitexam/internal/exam"
)

func TestValidateGeneratedExamDefaultsEmptyProtocolVersion(t *testing.T) {
	e := &exam.Exam{
		ProtocolVersion: "  ",
		Questions:       []exam.Question{{ID: "q1"}, {ID: "q2"}},
	}
	require.NoError(t, validateGeneratedExam(e))
	assert.Equal(t, exam.ProtocolVersion, e.ProtocolVersion)

	e = &exam.Exam{
		ProtocolVersion: "custom/9",
		Questions:       []exam.Question{{ID: "q1"}},
	}
	require.NoError(t, validateGeneratedExam(e))
	assert.Equal(t, "custom/9", e.ProtocolVersion)
}

func TestValidateGeneratedExamRejectsBadIDs(t *testing.T) {
	err := validateGeneratedExam(&exam.Exam{Questions: []exam.Question{{ID: "dup"}, {ID: "dup"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)

	err = validateGeneratedExam(&exam.Exam{Questions: []exam.Question{{ID: ""}}})
	assert.ErrorIs(t, err, ErrBackend)
}

func TestValidateGradedScoreIDSetMismatchIsFatal(t *testing.T) {
	ec := testContext("src/foo.go")
	e := &exam.Exam{Questions: []exam.Question{{ID: "q1"}, {ID: "q2"}}}
	a := &exam.Answers{}

	tests := []struct {
		name        string
		perQuestion []exam.QuestionScore
	}{
		{"missing id", []exam.QuestionScore{{ID: "q1"}}},
		{"extra id", []exam.QuestionScore{{ID: "q1"}, {ID: "q2"}, {ID: "q3"}}},
		{"renamed id", []exam.QuestionScore{{ID: "q1"}, {ID: "other"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &exam.Score{PerQuestion: tt.perQuestion}
			err := validateGradedScore(ec, e, a, s)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBackend)
		})
	}
}

func TestValidateGradedScoreClampsAndMergesFlags(t *testing.T) {
	ec := testContext("src/real.go")
	e := &exam.Exam{Questions: []exam.Question{{ID: "q1", Category: "risk"}}}
	a := &exam.Answers{Answers: map[string]string{"q1": "touched src/real.go and src/fake.go"}}

	s := &exam.Score{
		TotalScore: 1.3,
		PerQuestion: []exam.QuestionScore{
			{ID: "q1", Score: math.NaN(), Completeness: -1, Specificity: 2},
		},
		HallucinationFlags: []string{
			"q1: mentions file not in diff: src/fake.go", // backend found it too
			"backend-specific flag",
		},
	}
	require.NoError(t, validateGradedScore(ec, e, a, s))

	assert.Equal(t, 1.0, s.TotalScore)
	assert.Equal(t, 0.0, s.PerQuestion[0].Score)
	assert.Equal(t, 0.0, s.PerQuestion[0].Completeness)
	assert.Equal(t, 1.0, s.PerQuestion[0].Specificity)

	// Union is deduplicated and sorted.
	assert.Equal(t, []string{
		"backend-specific flag",
		"q1: mentions file not in diff: src/fake.go",
	}, s.HallucinationFlags)
}
