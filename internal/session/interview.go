package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/model"
	"github.com/pavelanni/careerprep/internal/service"
)

// InterviewStage is the visible phase of a mock interview.
type InterviewStage string

const (
	StageIdle      InterviewStage = "idle"
	StageActive    InterviewStage = "active"
	StageAwaiting  InterviewStage = "awaiting"
	StageReviewing InterviewStage = "reviewing"
)

// Capture is a held camera/microphone stream.
type Capture interface {
	Release()
}

// MediaSource acquires a capture. A denial must be reported as an error.
type MediaSource interface {
	Acquire(ctx context.Context) (Capture, error)
}

// FeedbackSource scores a finished interview.
type FeedbackSource interface {
	Feedback(ctx context.Context) (*model.InterviewSession, error)
}

// Interview is one user's interview controller:
// Idle -> Active -> Awaiting -> Reviewing -> Idle.
//
// The capture is released as soon as the user finishes, before feedback is
// requested. If feedback fails the controller stays in Awaiting with the error
// recorded; RetryFeedback asks again and Retake gives up.
type Interview struct {
	mu     sync.Mutex
	fb     FeedbackSource
	store  service.InterviewStore
	userID int64
	now    func() time.Time

	stage     InterviewStage
	gen       uint64
	pending   bool
	capture   Capture
	startedAt time.Time
	duration  time.Duration
	lastErr   error
	session   *model.InterviewSession
}

// NewInterview returns an Idle controller.
func NewInterview(userID int64, fb FeedbackSource, store service.InterviewStore, opts ...Option) *Interview {
	o := buildOptions(opts)
	return &Interview{
		fb:     fb,
		store:  store,
		userID: userID,
		now:    o.now,
		stage:  StageIdle,
	}
}

// Start acquires a capture from media and enters Active. A denial leaves the
// controller Idle and returns an apperr.KindMediaAccess error.
func (iv *Interview) Start(ctx context.Context, media MediaSource) error {
	iv.mu.Lock()
	if iv.stage != StageIdle {
		iv.mu.Unlock()
		return ErrUnavailable
	}
	iv.gen++
	gen := iv.gen
	iv.lastErr = nil
	iv.mu.Unlock()

	capture, err := media.Acquire(ctx)

	iv.mu.Lock()
	defer iv.mu.Unlock()
	if gen != iv.gen || iv.stage != StageIdle {
		if capture != nil {
			capture.Release()
		}
		return ErrStale
	}
	if err != nil {
		if !errors.Is(err, apperr.MediaAccess) {
			err = apperr.Wrap(apperr.KindMediaAccess, err, "camera and microphone access required")
		}
		iv.lastErr = err
		return err
	}

	iv.stage = StageActive
	iv.capture = capture
	iv.startedAt = iv.now()
	slog.InfoContext(ctx, "interview started", "user_id", iv.userID)
	return nil
}

// Finish releases the capture and requests feedback. On success the session
// is persisted and the controller enters Reviewing; on failure it stays in
// Awaiting.
func (iv *Interview) Finish(ctx context.Context) error {
	iv.mu.Lock()
	if iv.stage != StageActive {
		iv.mu.Unlock()
		return ErrUnavailable
	}
	iv.releaseLocked()
	iv.duration = iv.now().Sub(iv.startedAt)
	iv.stage = StageAwaiting
	iv.pending = true
	iv.lastErr = nil
	gen := iv.gen
	iv.mu.Unlock()

	return iv.requestFeedback(ctx, gen)
}

// RetryFeedback asks for feedback again after a failure.
func (iv *Interview) RetryFeedback(ctx context.Context) error {
	iv.mu.Lock()
	if iv.stage != StageAwaiting || iv.pending {
		iv.mu.Unlock()
		return ErrUnavailable
	}
	iv.pending = true
	iv.lastErr = nil
	gen := iv.gen
	iv.mu.Unlock()

	return iv.requestFeedback(ctx, gen)
}

func (iv *Interview) requestFeedback(ctx context.Context, gen uint64) error {
	s, err := iv.fb.Feedback(ctx)

	iv.mu.Lock()
	defer iv.mu.Unlock()
	if gen != iv.gen {
		return ErrStale
	}
	iv.pending = false
	if err != nil {
		iv.lastErr = err
		slog.WarnContext(ctx, "interview feedback failed", "user_id", iv.userID, "kind", apperr.KindOf(err), "error", err)
		return err
	}

	s.UserID = iv.userID
	s.Duration = int(iv.duration.Seconds())
	if err := iv.store.CreateInterviewSession(ctx, s); err != nil {
		err = fmt.Errorf("save interview session: %w", err)
		iv.lastErr = err
		slog.ErrorContext(ctx, "failed to save interview session", "user_id", iv.userID, "error", err)
		return err
	}

	iv.stage = StageReviewing
	iv.session = s
	slog.InfoContext(ctx, "interview reviewed", "user_id", iv.userID, "confidence", s.ConfidenceScore)
	return nil
}

// Retake discards the review (or a stalled feedback request) and returns to
// Idle.
func (iv *Interview) Retake() error {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	if iv.stage != StageReviewing && iv.stage != StageAwaiting {
		return ErrUnavailable
	}
	iv.resetLocked()
	return nil
}

// Close releases any held capture and returns to Idle from any stage.
func (iv *Interview) Close() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.releaseLocked()
	iv.resetLocked()
}

func (iv *Interview) releaseLocked() {
	if iv.capture != nil {
		iv.capture.Release()
		iv.capture = nil
	}
}

func (iv *Interview) resetLocked() {
	iv.gen++
	iv.stage = StageIdle
	iv.pending = false
	iv.startedAt = time.Time{}
	iv.duration = 0
	iv.lastErr = nil
	iv.session = nil
}

// InterviewView is a rendering snapshot of an Interview.
type InterviewView struct {
	Stage     InterviewStage          `json:"stage"`
	Question  string                  `json:"question"`
	Pending   bool                    `json:"pending"`
	Elapsed   int                     `json:"elapsedSeconds"`
	Error     string                  `json:"error,omitempty"`
	ErrorKind apperr.Kind             `json:"errorKind,omitempty"`
	Session   *model.InterviewSession `json:"session,omitempty"`
}

// View returns a copy of the controller state.
func (iv *Interview) View() InterviewView {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	v := InterviewView{
		Stage:    iv.stage,
		Question: model.InterviewQuestion,
		Pending:  iv.pending,
	}
	switch iv.stage {
	case StageActive:
		v.Elapsed = int(iv.now().Sub(iv.startedAt).Seconds())
	case StageAwaiting:
		v.Elapsed = int(iv.duration.Seconds())
	case StageReviewing:
		s := *iv.session
		v.Session = &s
		v.Elapsed = s.Duration
	}
	if iv.lastErr != nil {
		v.Error = iv.lastErr.Error()
		v.ErrorKind = apperr.KindOf(iv.lastErr)
	}
	return v
}

// Err returns the last recorded failure, if any.
func (iv *Interview) Err() error {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.lastErr
}

// Holding reports whether a capture is currently held.
func (iv *Interview) Holding() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.capture != nil
}
