package normalize

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/model"
)

type skillGapWire struct {
	Analysis *struct {
		RequiredSkills []string `json:"requiredSkills"`
		MissingSkills  []string `json:"missingSkills"`
	} `json:"analysis"`
	Roadmap    *[]phaseWire     `json:"roadmap"`
	Strategies []model.Strategy `json:"strategies"`
}

type phaseWire struct {
	Phase    *string  `json:"phase"`
	Topics   []string `json:"topics"`
	Duration string   `json:"duration"`
	Deadline string   `json:"deadline"`
}

// SkillGap parses a skill-gap completion. Only Analysis, Roadmap and
// Strategies are set on the returned report; the caller merges its inputs.
func SkillGap(text string) (*model.SkillGapReport, error) {
	var w skillGapWire
	if err := decode(ShapeSkillGap, text, &w); err != nil {
		return nil, err
	}
	if w.Analysis == nil {
		return nil, missing(ShapeSkillGap, "analysis")
	}
	if w.Roadmap == nil {
		return nil, missing(ShapeSkillGap, "roadmap")
	}

	r := &model.SkillGapReport{
		Analysis: model.SkillAnalysis{
			RequiredSkills: orEmpty(w.Analysis.RequiredSkills),
			MissingSkills:  orEmpty(w.Analysis.MissingSkills),
		},
		Roadmap:    make([]model.RoadmapPhase, 0, len(*w.Roadmap)),
		Strategies: orEmpty(w.Strategies),
	}
	for i, p := range *w.Roadmap {
		if p.Phase == nil {
			return nil, missing(ShapeSkillGap, fmt.Sprintf("roadmap[%d].phase", i))
		}
		r.Roadmap = append(r.Roadmap, model.RoadmapPhase{
			Phase:    *p.Phase,
			Topics:   orEmpty(p.Topics),
			Duration: p.Duration,
			Deadline: p.Deadline,
		})
	}
	return r, nil
}

type questionWire struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Question      *string   `json:"question"`
	Options       *[]string `json:"options"`
	CorrectAnswer *string   `json:"correctAnswer"`
	Explanation   string    `json:"explanation"`
}

// Questions parses an exam-questions completion. Every returned question has
// an id unique within the batch; upstream order is preserved. An empty array
// is valid here.
func Questions(text string) ([]model.Question, error) {
	var items []questionWire
	if err := decode(ShapeExamQuestions, text, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, missing(ShapeExamQuestions, "[]")
	}

	seen := make(map[string]bool, len(items))
	out := make([]model.Question, 0, len(items))
	for i, it := range items {
		if it.Question == nil {
			return nil, missing(ShapeExamQuestions, fmt.Sprintf("[%d].question", i))
		}
		if it.CorrectAnswer == nil {
			return nil, missing(ShapeExamQuestions, fmt.Sprintf("[%d].correctAnswer", i))
		}

		q := model.Question{
			ID:            it.ID,
			Text:          *it.Question,
			CorrectAnswer: *it.CorrectAnswer,
			Explanation:   it.Explanation,
		}
		if it.Options != nil {
			q.Options = *it.Options
		}
		switch model.QuestionKind(it.Type) {
		case model.KindMCQ, model.KindCoding:
			q.Kind = model.QuestionKind(it.Type)
		case "":
			q.Kind = model.KindCoding
			if it.Options != nil {
				q.Kind = model.KindMCQ
			}
		default:
			return nil, fail(ShapeExamQuestions,
				apperr.New(apperr.KindSchema, "%s: [%d].type %q is not mcq or coding", ShapeExamQuestions, i, it.Type))
		}

		if q.ID == "" || seen[q.ID] {
			q.ID = uuid.NewString()
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out, nil
}

type feedbackWire struct {
	ConfidenceScore *float64 `json:"confidenceScore"`
	StressLevel     *float64 `json:"stressLevel"`
	ClarityScore    *float64 `json:"clarityScore"`
	Feedback        *struct {
		Strengths  []string `json:"strengths"`
		Weaknesses []string `json:"weaknesses"`
		Tips       []string `json:"tips"`
	} `json:"feedback"`
}

// Feedback parses an interview-feedback completion into the score and
// feedback fields of an InterviewSession.
func Feedback(text string) (*model.InterviewSession, error) {
	var w feedbackWire
	if err := decode(ShapeInterviewFeedback, text, &w); err != nil {
		return nil, err
	}

	s := &model.InterviewSession{}
	scores := []struct {
		name string
		in   *float64
		out  *int
	}{
		{"confidenceScore", w.ConfidenceScore, &s.ConfidenceScore},
		{"stressLevel", w.StressLevel, &s.StressLevel},
		{"clarityScore", w.ClarityScore, &s.ClarityScore},
	}
	for _, sc := range scores {
		if sc.in == nil {
			return nil, missing(ShapeInterviewFeedback, sc.name)
		}
		if *sc.in < 0 || *sc.in > 100 {
			return nil, fail(ShapeInterviewFeedback,
				apperr.New(apperr.KindSchema, "%s: %s %v outside [0,100]", ShapeInterviewFeedback, sc.name, *sc.in))
		}
		*sc.out = int(math.Round(*sc.in))
	}

	s.Feedback = model.InterviewFeedback{Strengths: []string{}, Weaknesses: []string{}, Tips: []string{}}
	if w.Feedback != nil {
		s.Feedback.Strengths = orEmpty(w.Feedback.Strengths)
		s.Feedback.Weaknesses = orEmpty(w.Feedback.Weaknesses)
		s.Feedback.Tips = orEmpty(w.Feedback.Tips)
	}
	return s, nil
}

type verdictWire struct {
	IsCorrect   *bool  `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

// CodeVerdict parses a code-validation completion.
func CodeVerdict(text string) (model.CodeVerdict, error) {
	var w verdictWire
	if err := decode(ShapeCodeValidation, text, &w); err != nil {
		return model.CodeVerdict{}, err
	}
	if w.IsCorrect == nil {
		return model.CodeVerdict{}, missing(ShapeCodeValidation, "isCorrect")
	}
	return model.CodeVerdict{IsCorrect: *w.IsCorrect, Explanation: w.Explanation}, nil
}
