package service

import (
	"context"
	"fmt"

	"github.com/pavelanni/careerprep/internal/llm"
	"github.com/pavelanni/careerprep/internal/llm/prompts"
	"github.com/pavelanni/careerprep/internal/model"
	"github.com/pavelanni/careerprep/internal/normalize"
)

type feedbackPayload struct {
	ConfidenceScore int                     `json:"confidenceScore"`
	StressLevel     int                     `json:"stressLevel"`
	ClarityScore    int                     `json:"clarityScore"`
	Feedback        model.InterviewFeedback `json:"feedback"`
}

var feedbackSchema = llm.SchemaFor(&feedbackPayload{})

// InterviewService scores a mock interview. It does not persist anything;
// the interview controller owns that.
type InterviewService struct {
	llm llm.Completer
}

func NewInterviewService(c llm.Completer) *InterviewService {
	return &InterviewService{llm: c}
}

// Feedback returns scores and feedback lists. Only the score and Feedback
// fields of the result are set.
func (s *InterviewService) Feedback(ctx context.Context) (*model.InterviewSession, error) {
	prompt, err := prompts.BuildInterview()
	if err != nil {
		return nil, fmt.Errorf("build interview prompt: %w", err)
	}
	raw, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompt,
		SchemaName:  "interview_feedback",
		Schema:      feedbackSchema,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}
	return normalize.Feedback(raw)
}
