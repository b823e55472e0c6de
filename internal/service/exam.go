package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/llm"
	"github.com/pavelanni/careerprep/internal/llm/prompts"
	"github.com/pavelanni/careerprep/internal/model"
	"github.com/pavelanni/careerprep/internal/normalize"
)

var codeVerdictSchema = llm.SchemaFor(&model.CodeVerdict{})

// ExamService generates question batches and explains or checks answers.
type ExamService struct {
	llm   llm.Completer
	count int
}

// NewExamService returns an exam service producing count questions per
// batch, or DefaultQuestionCount when count is not positive.
func NewExamService(c llm.Completer, count int) *ExamService {
	if count <= 0 {
		count = DefaultQuestionCount
	}
	return &ExamService{llm: c, count: count}
}

// Questions generates a batch for subject. An empty batch is an
// apperr.KindEmptyResult error.
func (s *ExamService) Questions(ctx context.Context, subject string) ([]model.Question, error) {
	if !model.IsSupportedSubject(subject) {
		return nil, apperr.New(apperr.KindValidation, "unsupported subject %q", subject)
	}
	prompt, err := prompts.BuildExam(subject, s.count)
	if err != nil {
		return nil, fmt.Errorf("build exam prompt: %w", err)
	}
	// Top-level arrays cannot be expressed as a structured output schema.
	raw, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, Temperature: 0.8})
	if err != nil {
		return nil, err
	}
	questions, err := normalize.Questions(raw)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, apperr.New(apperr.KindEmptyResult, "no questions generated for %s", subject)
	}
	slog.InfoContext(ctx, "exam questions generated", "subject", subject, "count", len(questions))
	return questions, nil
}

// Explain returns a plain-text explanation of why answer is or is not
// correct.
func (s *ExamService) Explain(ctx context.Context, question, answer, correct string) (string, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(correct) == "" {
		return "", apperr.New(apperr.KindValidation, "question and correct answer are required")
	}
	prompt, err := prompts.BuildExplanation(question, answer, correct)
	if err != nil {
		return "", fmt.Errorf("build explanation prompt: %w", err)
	}
	raw, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, Temperature: 0.3})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", apperr.New(apperr.KindEmptyResult, "empty explanation")
	}
	return text, nil
}

// ValidateCode asks the model to judge a free-form coding answer.
func (s *ExamService) ValidateCode(ctx context.Context, question, answer, correct string) (model.CodeVerdict, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(correct) == "" {
		return model.CodeVerdict{}, apperr.New(apperr.KindValidation, "question and correct answer are required")
	}
	prompt, err := prompts.BuildValidation(question, answer, correct)
	if err != nil {
		return model.CodeVerdict{}, fmt.Errorf("build validation prompt: %w", err)
	}
	raw, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompt,
		SchemaName:  "code_validation",
		Schema:      codeVerdictSchema,
		Temperature: 0.1,
	})
	if err != nil {
		return model.CodeVerdict{}, err
	}
	return normalize.CodeVerdict(raw)
}
