package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sourceFunc func(ctx context.Context, subject string) ([]model.Question, error)

func (f sourceFunc) Questions(ctx context.Context, subject string) ([]model.Question, error) {
	return f(ctx, subject)
}

type feedbackFunc func(ctx context.Context) (*model.InterviewSession, error)

func (f feedbackFunc) Feedback(ctx context.Context) (*model.InterviewSession, error) {
	return f(ctx)
}

type recordStore struct {
	mu         sync.Mutex
	results    []model.ExamResult
	interviews []model.InterviewSession
	err        error
}

func (s *recordStore) CreateExamResult(_ context.Context, r *model.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	r.ID = int64(len(s.results) + 1)
	s.results = append(s.results, *r)
	return nil
}

func (s *recordStore) CreateInterviewSession(_ context.Context, is *model.InterviewSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	is.ID = int64(len(s.interviews) + 1)
	s.interviews = append(s.interviews, *is)
	return nil
}

func dsaBatch() []model.Question {
	return []model.Question{
		{ID: "q1", Kind: model.KindMCQ, Text: "Stack order?", Options: []string{"LIFO", "FIFO"}, CorrectAnswer: "LIFO"},
		{ID: "q2", Kind: model.KindMCQ, Text: "Queue order?", Options: []string{"LIFO", "FIFO"}, CorrectAnswer: "FIFO"},
		{ID: "q3", Kind: model.KindCoding, Text: "Binary search complexity?", CorrectAnswer: "O(log n)"},
		{ID: "q4", Kind: model.KindCoding, Text: "Hash lookup complexity?", CorrectAnswer: "O(1)"},
		{ID: "q5", Kind: model.KindMCQ, Text: "Heap root?", Options: []string{"min", "max"}, CorrectAnswer: "min"},
	}
}

func staticSource(qs []model.Question) QuestionSource {
	return sourceFunc(func(context.Context, string) ([]model.Question, error) {
		return qs, nil
	})
}

func TestExamStart(t *testing.T) {
	e := NewExam(1, staticSource(dsaBatch()), &recordStore{})
	if v := e.View(); v.Stage != StageSelection || len(v.Subjects) != len(model.Subjects) {
		t.Fatalf("initial view = %+v", v)
	}

	if err := e.Start(context.Background(), "DSA"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	v := e.View()
	if v.Stage != StageRunning || v.Subject != "DSA" || v.Index != 0 || len(v.Questions) != 5 {
		t.Errorf("running view = %+v", v)
	}
	if err := e.Start(context.Background(), "SQL"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Start while running: error = %v, want ErrUnavailable", err)
	}
}

func TestExamStartFailureKeepsSelection(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"empty result", apperr.New(apperr.KindEmptyResult, "no questions")},
		{"transport", apperr.New(apperr.KindTransport, "down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := sourceFunc(func(context.Context, string) ([]model.Question, error) { return nil, tt.err })
			e := NewExam(1, src, &recordStore{})
			if err := e.Start(context.Background(), "SQL"); !errors.Is(err, tt.err) {
				t.Errorf("Start() error = %v, want %v", err, tt.err)
			}
			if v := e.View(); v.Stage != StageSelection || v.Loading {
				t.Errorf("view after failure = %+v, want idle selection", v)
			}
		})
	}
}

func TestExamStaleBatchDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	src := sourceFunc(func(ctx context.Context, subject string) ([]model.Question, error) {
		if subject == "SQL" {
			close(entered)
			<-release
		}
		return dsaBatch(), nil
	})
	e := NewExam(1, src, &recordStore{})

	done := make(chan error, 1)
	go func() { done <- e.Start(context.Background(), "SQL") }()
	<-entered
	if v := e.View(); !v.Loading {
		t.Error("view should report loading while a batch is generated")
	}

	if err := e.Start(context.Background(), "DSA"); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	close(release)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("first Start error = %v, want ErrStale", err)
	}
	if v := e.View(); v.Stage != StageRunning || v.Subject != "DSA" {
		t.Errorf("view = %+v, want the newer DSA batch", v)
	}
}

func TestExamResetDuringStart(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	src := sourceFunc(func(context.Context, string) ([]model.Question, error) {
		close(entered)
		<-release
		return dsaBatch(), nil
	})
	e := NewExam(1, src, &recordStore{})

	done := make(chan error, 1)
	go func() { done <- e.Start(context.Background(), "DSA") }()
	<-entered
	e.BackToSelection()
	close(release)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("Start error = %v, want ErrStale", err)
	}
	if v := e.View(); v.Stage != StageSelection {
		t.Errorf("stage = %s, want selection", v.Stage)
	}
}

func TestExamNavigation(t *testing.T) {
	e := NewExam(1, staticSource(dsaBatch()), &recordStore{})
	if err := e.Start(context.Background(), "DSA"); err != nil {
		t.Fatal(err)
	}

	if err := e.Previous(); err != nil {
		t.Fatalf("Previous at 0: %v", err)
	}
	if v := e.View(); v.Index != 0 {
		t.Errorf("index = %d, want 0", v.Index)
	}
	if e.CanFinish() {
		t.Error("CanFinish should be false before the last question")
	}
	if _, err := e.Finish(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("early Finish error = %v, want ErrUnavailable", err)
	}

	for i := 0; i < 4; i++ {
		if err := e.Next(); err != nil {
			t.Fatalf("Next #%d: %v", i, err)
		}
	}
	if !e.CanFinish() {
		t.Error("CanFinish should be true on the last question")
	}
	if err := e.Next(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Next at last: error = %v, want ErrUnavailable", err)
	}
	if v := e.View(); v.Index != 4 {
		t.Errorf("index = %d, want 4", v.Index)
	}
	if err := e.Previous(); err != nil {
		t.Fatal(err)
	}
	if v := e.View(); v.Index != 3 || v.CanFinish {
		t.Errorf("after Previous: index = %d, canFinish = %t", v.Index, v.CanFinish)
	}
}

func TestExamAnswerUnknownQuestion(t *testing.T) {
	e := NewExam(1, staticSource(dsaBatch()), &recordStore{})
	if err := e.Answer("q1", "LIFO"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Answer before start: error = %v, want ErrUnavailable", err)
	}
	if err := e.Start(context.Background(), "DSA"); err != nil {
		t.Fatal(err)
	}
	if err := e.Answer("nope", "x"); !errors.Is(err, apperr.Validation) {
		t.Errorf("Answer unknown id: error = %v, want validation", err)
	}
	if err := e.Keystroke(-1); !errors.Is(err, apperr.Validation) {
		t.Errorf("negative keystrokes: error = %v, want validation", err)
	}
}

func toQuestion(t *testing.T, e *Exam, index int) {
	t.Helper()
	for e.View().Index < index {
		if err := e.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
}

func runToLast(t *testing.T, e *Exam) {
	t.Helper()
	for e.Next() == nil {
	}
	if !e.CanFinish() {
		t.Fatal("expected to be on the last question")
	}
}

func TestExamFinishScoring(t *testing.T) {
	clock := newFakeClock()
	st := &recordStore{}
	e := NewExam(42, staticSource(dsaBatch()), st, WithClock(clock.Now))
	ctx := context.Background()
	if err := e.Start(ctx, "DSA"); err != nil {
		t.Fatal(err)
	}

	answers := map[string]string{
		"q1": " lifo ", // correct, case and whitespace ignored
		"q2": "FIFO",   // correct
		"q3": "O(n)",   // wrong, coding
		"q4": "O(1)",   // correct
		"q5": "max",    // wrong, mcq
	}
	for id, a := range answers {
		if err := e.Answer(id, a); err != nil {
			t.Fatalf("Answer(%s): %v", id, err)
		}
	}
	if err := e.Keystroke(7); err != nil {
		t.Fatal(err)
	}
	if v := e.View(); v.Typing != 0 {
		t.Errorf("typing on mcq = %d, want 0", v.Typing)
	}
	toQuestion(t, e, 2)
	if err := e.Keystroke(3); err != nil {
		t.Fatal(err)
	}
	clock.Advance(95 * time.Second)
	runToLast(t, e)

	r, err := e.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if r.Score != 60 || r.Accuracy != r.Score {
		t.Errorf("score/accuracy = %d/%d, want 60/60", r.Score, r.Accuracy)
	}
	if r.TotalQuestions != 5 || r.ExamType != "DSA" || r.UserID != 42 {
		t.Errorf("result header = %+v", r)
	}
	if len(r.WeakTopics) != 2 || r.WeakTopics[0] != "coding" || r.WeakTopics[1] != "mcq" {
		t.Errorf("WeakTopics = %v, want [coding mcq]", r.WeakTopics)
	}
	if r.TimeSpent != 95 {
		t.Errorf("TimeSpent = %d, want 95", r.TimeSpent)
	}
	if r.AIUsagePercent != 30 {
		t.Errorf("AIUsagePercent = %d, want 30", r.AIUsagePercent)
	}
	if len(r.Results) != 5 {
		t.Fatalf("outcomes = %d, want 5", len(r.Results))
	}
	for i, o := range r.Results {
		if o.QuestionID != dsaBatch()[i].ID {
			t.Errorf("outcome %d belongs to %q", i, o.QuestionID)
		}
	}
	if len(st.results) != 1 {
		t.Errorf("persisted %d results, want 1", len(st.results))
	}

	v := e.View()
	if v.Stage != StageResults || v.Result == nil || v.Result.Score != 60 {
		t.Errorf("results view = %+v", v)
	}
	if _, err := e.Finish(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("second Finish: error = %v, want ErrUnavailable", err)
	}
	if len(st.results) != 1 {
		t.Errorf("persisted %d results after second Finish, want 1", len(st.results))
	}

	e.BackToSelection()
	if v := e.View(); v.Stage != StageSelection || v.Result != nil || v.Typing != 0 {
		t.Errorf("view after reset = %+v", v)
	}
}

func TestExamAIUsageClamped(t *testing.T) {
	e := NewExam(1, staticSource(dsaBatch()), &recordStore{})
	if err := e.Start(context.Background(), "DSA"); err != nil {
		t.Fatal(err)
	}
	toQuestion(t, e, 2)
	for i := 0; i < 4; i++ {
		if err := e.Keystroke(5); err != nil {
			t.Fatal(err)
		}
	}
	runToLast(t, e)
	r, err := e.Finish(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.AIUsagePercent != 100 {
		t.Errorf("AIUsagePercent = %d, want 100", r.AIUsagePercent)
	}
	if r.Score != 0 || len(r.WeakTopics) != 5 {
		t.Errorf("unanswered exam: score %d, weak %v", r.Score, r.WeakTopics)
	}
}

func TestExamTypingSaturates(t *testing.T) {
	e := NewExam(1, staticSource(dsaBatch()), &recordStore{})
	if err := e.Start(context.Background(), "DSA"); err != nil {
		t.Fatal(err)
	}
	toQuestion(t, e, 3)

	prev := 0
	for _, n := range []int{math.MaxInt/aiUsagePerKeystroke + 1, math.MaxInt, 1} {
		if err := e.Keystroke(n); err != nil {
			t.Fatalf("Keystroke(%d): %v", n, err)
		}
		typing := e.View().Typing
		if typing < prev {
			t.Fatalf("typing decreased from %d to %d", prev, typing)
		}
		prev = typing
	}
	if prev != math.MaxInt {
		t.Errorf("typing = %d, want math.MaxInt", prev)
	}

	runToLast(t, e)
	r, err := e.Finish(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.AIUsagePercent != 100 {
		t.Errorf("AIUsagePercent = %d, want 100", r.AIUsagePercent)
	}
}

func TestAIUsagePercent(t *testing.T) {
	tests := []struct {
		typing int
		want   int
	}{
		{0, 0},
		{3, 30},
		{9, 90},
		{10, 100},
		{math.MaxInt/aiUsagePerKeystroke + 1, 100},
		{math.MaxInt, 100},
	}
	for _, tt := range tests {
		if got := aiUsagePercent(tt.typing); got != tt.want {
			t.Errorf("aiUsagePercent(%d) = %d, want %d", tt.typing, got, tt.want)
		}
	}
}

func TestExamResetFromRunningDiscards(t *testing.T) {
	st := &recordStore{}
	e := NewExam(1, staticSource(dsaBatch()), st)
	if err := e.Start(context.Background(), "DSA"); err != nil {
		t.Fatal(err)
	}
	if err := e.Answer("q1", "LIFO"); err != nil {
		t.Fatal(err)
	}
	runToLast(t, e)

	e.BackToSelection()
	if v := e.View(); v.Stage != StageSelection || v.Result != nil {
		t.Errorf("view after reset = %+v", v)
	}
	if len(st.results) != 0 {
		t.Errorf("persisted %d results, want 0", len(st.results))
	}
}

func TestExamPersistFailureKeepsRunning(t *testing.T) {
	st := &recordStore{err: errors.New("db locked")}
	e := NewExam(1, staticSource(dsaBatch()), st)
	if err := e.Start(context.Background(), "DSA"); err != nil {
		t.Fatal(err)
	}
	runToLast(t, e)

	if _, err := e.Finish(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if v := e.View(); v.Stage != StageRunning || !v.CanFinish {
		t.Errorf("view after failed finish = %+v", v)
	}

	st.mu.Lock()
	st.err = nil
	st.mu.Unlock()
	if _, err := e.Finish(context.Background()); err != nil {
		t.Fatalf("retry Finish: %v", err)
	}
	if len(st.results) != 1 {
		t.Errorf("persisted %d results, want 1", len(st.results))
	}
}

func TestExamViewHidesAnswers(t *testing.T) {
	e := NewExam(1, staticSource(dsaBatch()), &recordStore{})
	if err := e.Start(context.Background(), "DSA"); err != nil {
		t.Fatal(err)
	}
	if err := e.Answer("q1", "LIFO"); err != nil {
		t.Fatal(err)
	}
	v := e.View()
	if v.Answers["q1"] != "LIFO" {
		t.Errorf("answers = %v", v.Answers)
	}
	v.Answers["q1"] = "mutated"
	if e.View().Answers["q1"] != "LIFO" {
		t.Error("View must return a copy")
	}
}

type fakeCapture struct {
	released atomic.Bool
}

func (c *fakeCapture) Release() { c.released.Store(true) }

type fakeMedia struct {
	capture *fakeCapture
	err     error
}

func (m *fakeMedia) Acquire(context.Context) (Capture, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.capture = &fakeCapture{}
	return m.capture, nil
}

func goodFeedback() *model.InterviewSession {
	return &model.InterviewSession{
		ConfidenceScore: 70,
		StressLevel:     40,
		ClarityScore:    80,
		Feedback: model.InterviewFeedback{
			Strengths: []string{"clear"}, Weaknesses: []string{}, Tips: []string{"slow down"},
		},
	}
}

func TestInterviewCameraDenied(t *testing.T) {
	iv := NewInterview(1, feedbackFunc(func(context.Context) (*model.InterviewSession, error) {
		t.Error("feedback must not be requested")
		return nil, nil
	}), &recordStore{})

	err := iv.Start(context.Background(), DeclaredMedia{Camera: false, Microphone: true})
	if !errors.Is(err, apperr.MediaAccess) {
		t.Fatalf("Start() error = %v, want media access", err)
	}
	v := iv.View()
	if v.Stage != StageIdle || v.ErrorKind != apperr.KindMediaAccess {
		t.Errorf("view = %+v", v)
	}
	if iv.Holding() {
		t.Error("no capture should be held after a denial")
	}
}

func TestInterviewForeignMediaErrorClassified(t *testing.T) {
	iv := NewInterview(1, nil, &recordStore{})
	err := iv.Start(context.Background(), &fakeMedia{err: errors.New("NotAllowedError")})
	if !errors.Is(err, apperr.MediaAccess) {
		t.Errorf("Start() error = %v, want media access", err)
	}
}

func TestInterviewHappyPath(t *testing.T) {
	clock := newFakeClock()
	st := &recordStore{}
	media := &fakeMedia{}
	var releasedBeforeFeedback bool
	fb := feedbackFunc(func(context.Context) (*model.InterviewSession, error) {
		releasedBeforeFeedback = media.capture.released.Load()
		return goodFeedback(), nil
	})
	iv := NewInterview(9, fb, st, WithClock(clock.Now))
	ctx := context.Background()

	if err := iv.Start(ctx, media); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if v := iv.View(); v.Stage != StageActive || v.Question != model.InterviewQuestion {
		t.Errorf("active view = %+v", v)
	}
	if !iv.Holding() {
		t.Error("capture should be held while active")
	}
	clock.Advance(2 * time.Minute)

	if err := iv.Finish(ctx); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if !releasedBeforeFeedback {
		t.Error("capture must be released before feedback is requested")
	}
	v := iv.View()
	if v.Stage != StageReviewing || v.Session == nil || v.Session.ConfidenceScore != 70 {
		t.Errorf("reviewing view = %+v", v)
	}
	if len(st.interviews) != 1 || st.interviews[0].Duration != 120 || st.interviews[0].UserID != 9 {
		t.Errorf("persisted = %+v", st.interviews)
	}

	if err := iv.Retake(); err != nil {
		t.Fatalf("Retake: %v", err)
	}
	if v := iv.View(); v.Stage != StageIdle || v.Session != nil {
		t.Errorf("view after retake = %+v", v)
	}
}

func TestInterviewFeedbackFailureStalls(t *testing.T) {
	st := &recordStore{}
	media := &fakeMedia{}
	calls := 0
	fb := feedbackFunc(func(context.Context) (*model.InterviewSession, error) {
		calls++
		if calls == 1 {
			return nil, apperr.New(apperr.KindMalformed, "garbage")
		}
		return goodFeedback(), nil
	})
	iv := NewInterview(1, fb, st)
	ctx := context.Background()

	if err := iv.Start(ctx, media); err != nil {
		t.Fatal(err)
	}
	if err := iv.Finish(ctx); !errors.Is(err, apperr.Malformed) {
		t.Fatalf("Finish() error = %v, want malformed", err)
	}
	v := iv.View()
	if v.Stage != StageAwaiting || v.ErrorKind != apperr.KindMalformed || v.Pending {
		t.Errorf("stalled view = %+v", v)
	}
	if !media.capture.released.Load() || iv.Holding() {
		t.Error("capture must be released even when feedback fails")
	}
	if len(st.interviews) != 0 {
		t.Error("nothing should be persisted on failure")
	}

	if err := iv.RetryFeedback(ctx); err != nil {
		t.Fatalf("RetryFeedback: %v", err)
	}
	if v := iv.View(); v.Stage != StageReviewing || v.Error != "" {
		t.Errorf("view after retry = %+v", v)
	}
	if len(st.interviews) != 1 {
		t.Errorf("persisted %d sessions, want 1", len(st.interviews))
	}
}

func TestInterviewInvalidTransitions(t *testing.T) {
	iv := NewInterview(1, feedbackFunc(func(context.Context) (*model.InterviewSession, error) {
		return goodFeedback(), nil
	}), &recordStore{})
	ctx := context.Background()

	if err := iv.Finish(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Finish from idle: %v", err)
	}
	if err := iv.RetryFeedback(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("RetryFeedback from idle: %v", err)
	}
	if err := iv.Retake(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Retake from idle: %v", err)
	}
	if err := iv.Start(ctx, &fakeMedia{}); err != nil {
		t.Fatal(err)
	}
	if err := iv.Start(ctx, &fakeMedia{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Start from active: %v", err)
	}
	if err := iv.Retake(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Retake from active: %v", err)
	}
}

func TestInterviewRetakeDiscardsInFlightFeedback(t *testing.T) {
	st := &recordStore{}
	entered := make(chan struct{})
	release := make(chan struct{})
	fb := feedbackFunc(func(context.Context) (*model.InterviewSession, error) {
		close(entered)
		<-release
		return goodFeedback(), nil
	})
	iv := NewInterview(1, fb, st)
	ctx := context.Background()
	if err := iv.Start(ctx, &fakeMedia{}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- iv.Finish(ctx) }()
	<-entered
	if v := iv.View(); v.Stage != StageAwaiting || !v.Pending {
		t.Errorf("view while waiting = %+v", v)
	}
	if err := iv.Retake(); err != nil {
		t.Fatalf("Retake while awaiting: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("Finish() error = %v, want ErrStale", err)
	}
	if v := iv.View(); v.Stage != StageIdle {
		t.Errorf("stage = %s, want idle", v.Stage)
	}
	if len(st.interviews) != 0 {
		t.Error("stale feedback must not be persisted")
	}
}

func TestInterviewCloseReleasesCapture(t *testing.T) {
	media := &fakeMedia{}
	iv := NewInterview(1, nil, &recordStore{})
	if err := iv.Start(context.Background(), media); err != nil {
		t.Fatal(err)
	}
	iv.Close()
	if !media.capture.released.Load() {
		t.Error("Close must release the capture")
	}
	if v := iv.View(); v.Stage != StageIdle {
		t.Errorf("stage = %s, want idle", v.Stage)
	}
}

func TestRegistry(t *testing.T) {
	st := &recordStore{}
	r := NewRegistry(staticSource(dsaBatch()), nil, st, st)
	if r.Exam(1) != r.Exam(1) {
		t.Error("Exam should return the same machine for a user")
	}
	if r.Exam(1) == r.Exam(2) {
		t.Error("users must not share machines")
	}

	media := &fakeMedia{}
	if err := r.Interview(1).Start(context.Background(), media); err != nil {
		t.Fatal(err)
	}
	r.Drop(1)
	if !media.capture.released.Load() {
		t.Error("Drop must release held captures")
	}
	if r.Interview(1).View().Stage != StageIdle {
		t.Error("a dropped user should get a fresh controller")
	}
}
