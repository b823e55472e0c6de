package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/model"
	"github.com/pavelanni/careerprep/internal/service"
)

// ExamStage is the visible phase of an exam.
type ExamStage string

const (
	StageSelection ExamStage = "selection"
	StageRunning   ExamStage = "running"
	StageResults   ExamStage = "results"
)

// aiUsagePerKeystroke converts the typing counter into the AI-usage
// heuristic. The figure is a placeholder, not a measurement.
const aiUsagePerKeystroke = 10

// QuestionSource produces a question batch for a subject.
type QuestionSource interface {
	Questions(ctx context.Context, subject string) ([]model.Question, error)
}

// Exam is one user's exam state machine:
// Selection -> Running -> Results -> Selection.
type Exam struct {
	mu     sync.Mutex
	src    QuestionSource
	store  service.ExamResultStore
	userID int64
	now    func() time.Time

	stage     ExamStage
	gen       uint64
	loading   bool
	subject   string
	questions []model.Question
	answers   map[string]string
	index     int
	typing    int
	startedAt time.Time
	result    *model.ExamResult
}

// NewExam returns a machine in the Selection stage.
func NewExam(userID int64, src QuestionSource, store service.ExamResultStore, opts ...Option) *Exam {
	o := buildOptions(opts)
	return &Exam{
		src:    src,
		store:  store,
		userID: userID,
		now:    o.now,
		stage:  StageSelection,
	}
}

// Start requests a batch for subject and enters Running with it. The lock is
// not held while the batch is generated; if another Start or a reset happens
// meanwhile this call returns ErrStale and changes nothing. On failure the
// machine stays in Selection.
func (e *Exam) Start(ctx context.Context, subject string) error {
	e.mu.Lock()
	if e.stage != StageSelection {
		e.mu.Unlock()
		return ErrUnavailable
	}
	e.gen++
	gen := e.gen
	e.loading = true
	e.mu.Unlock()

	questions, err := e.src.Questions(ctx, subject)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return ErrStale
	}
	e.loading = false
	if err != nil {
		return err
	}

	e.stage = StageRunning
	e.subject = subject
	e.questions = questions
	e.answers = make(map[string]string, len(questions))
	e.index = 0
	e.typing = 0
	e.startedAt = e.now()
	e.result = nil
	return nil
}

// Answer records the answer to a question of the running batch.
func (e *Exam) Answer(questionID, answer string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stage != StageRunning {
		return ErrUnavailable
	}
	if !e.hasQuestion(questionID) {
		return apperr.New(apperr.KindValidation, "question %q is not part of this exam", questionID)
	}
	e.answers[questionID] = answer
	return nil
}

func (e *Exam) hasQuestion(id string) bool {
	for _, q := range e.questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Keystroke adds n to the typing counter while a free-form question is
// shown; keystrokes on multiple-choice questions are ignored. The counter
// never decreases and saturates at math.MaxInt.
func (e *Exam) Keystroke(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stage != StageRunning {
		return ErrUnavailable
	}
	if n < 0 {
		return apperr.New(apperr.KindValidation, "keystroke count must not be negative")
	}
	if len(e.questions) == 0 || e.questions[e.index].Kind != model.KindCoding {
		return nil
	}
	if n > math.MaxInt-e.typing {
		e.typing = math.MaxInt
	} else {
		e.typing += n
	}
	return nil
}

// Previous moves back one question; a no-op on the first one.
func (e *Exam) Previous() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stage != StageRunning {
		return ErrUnavailable
	}
	if e.index > 0 {
		e.index--
	}
	return nil
}

// Next moves forward one question. On the last question it returns
// ErrUnavailable; Finish is the only way forward from there.
func (e *Exam) Next() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stage != StageRunning || e.index >= len(e.questions)-1 {
		return ErrUnavailable
	}
	e.index++
	return nil
}

// CanFinish reports whether the current question is the last one.
func (e *Exam) CanFinish() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canFinish()
}

func (e *Exam) canFinish() bool {
	return e.stage == StageRunning && len(e.questions) > 0 && e.index == len(e.questions)-1
}

// Finish scores the exam, persists the result once and enters Results. A
// persistence failure leaves the machine Running so the user can retry.
func (e *Exam) Finish(ctx context.Context) (*model.ExamResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canFinish() {
		return nil, ErrUnavailable
	}

	r := e.score()
	if err := e.store.CreateExamResult(ctx, r); err != nil {
		slog.ErrorContext(ctx, "failed to save exam result", "user_id", e.userID, "subject", e.subject, "error", err)
		return nil, fmt.Errorf("save exam result: %w", err)
	}
	slog.InfoContext(ctx, "exam finished", "user_id", e.userID, "subject", e.subject, "score", r.Score)

	e.stage = StageResults
	e.result = r
	cp := *r
	return &cp, nil
}

func (e *Exam) score() *model.ExamResult {
	total := len(e.questions)
	correct := 0
	weak := []string{}
	outcomes := make([]model.QuestionOutcome, 0, total)
	for _, q := range e.questions {
		answer := e.answers[q.ID]
		ok := answersMatch(answer, q.CorrectAnswer)
		if ok {
			correct++
		} else {
			weak = append(weak, string(q.Kind))
		}
		outcomes = append(outcomes, model.QuestionOutcome{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			QuestionType:  q.Kind,
			CorrectAnswer: q.CorrectAnswer,
			UserAnswer:    answer,
			IsCorrect:     ok,
			Explanation:   q.Explanation,
		})
	}

	score := int(math.Round(float64(correct) / float64(total) * 100))
	return &model.ExamResult{
		UserID:         e.userID,
		ExamType:       e.subject,
		Score:          score,
		TotalQuestions: total,
		Accuracy:       score,
		TimeSpent:      int(e.now().Sub(e.startedAt).Seconds()),
		AIUsagePercent: aiUsagePercent(e.typing),
		WeakTopics:     weak,
		Results:        outcomes,
	}
}

// aiUsagePercent is min(typing*aiUsagePerKeystroke, 100) without overflow.
func aiUsagePercent(typing int) int {
	if typing >= 100/aiUsagePerKeystroke {
		return 100
	}
	return max(typing, 0) * aiUsagePerKeystroke
}

func answersMatch(answer, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct))
}

// BackToSelection resets the machine to Selection from any stage and
// invalidates in-flight batches. A running exam is discarded without a
// result.
func (e *Exam) BackToSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.stage = StageSelection
	e.loading = false
	e.subject = ""
	e.questions = nil
	e.answers = nil
	e.index = 0
	e.typing = 0
	e.startedAt = time.Time{}
	e.result = nil
}

// QuestionView is a question as shown while the exam runs.
type QuestionView struct {
	ID      string             `json:"id"`
	Kind    model.QuestionKind `json:"type"`
	Text    string             `json:"question"`
	Options []string           `json:"options,omitempty"`
}

// ExamView is a rendering snapshot of an Exam.
type ExamView struct {
	Stage     ExamStage         `json:"stage"`
	Loading   bool              `json:"loading"`
	Subject   string            `json:"subject,omitempty"`
	Subjects  []string          `json:"subjects,omitempty"`
	Questions []QuestionView    `json:"questions,omitempty"`
	Index     int               `json:"index"`
	Answers   map[string]string `json:"answers,omitempty"`
	Typing    int               `json:"typing"`
	CanFinish bool              `json:"canFinish"`
	Result    *model.ExamResult `json:"result,omitempty"`
}

// View returns a copy of the machine state. Correct answers are never part
// of a view while the exam runs.
func (e *Exam) View() ExamView {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := ExamView{
		Stage:     e.stage,
		Loading:   e.loading,
		Subject:   e.subject,
		Index:     e.index,
		Typing:    e.typing,
		CanFinish: e.canFinish(),
	}
	switch e.stage {
	case StageSelection:
		v.Subjects = append([]string(nil), model.Subjects...)
	case StageRunning:
		v.Questions = make([]QuestionView, len(e.questions))
		for i, q := range e.questions {
			v.Questions[i] = QuestionView{ID: q.ID, Kind: q.Kind, Text: q.Text, Options: q.Options}
		}
		v.Answers = make(map[string]string, len(e.answers))
		for k, a := range e.answers {
			v.Answers[k] = a
		}
	case StageResults:
		r := *e.result
		v.Result = &r
	}
	return v
}
