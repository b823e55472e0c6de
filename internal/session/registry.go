package session

import (
	"sync"

	"github.com/pavelanni/careerprep/internal/service"
)

// Registry keeps at most one exam machine and one interview controller per
// user, created on first use.
type Registry struct {
	questions QuestionSource
	feedback  FeedbackSource
	results   service.ExamResultStore
	sessions  service.InterviewStore
	opts      []Option

	mu         sync.Mutex
	exams      map[int64]*Exam
	interviews map[int64]*Interview
}

func NewRegistry(questions QuestionSource, feedback FeedbackSource, results service.ExamResultStore, sessions service.InterviewStore, opts ...Option) *Registry {
	return &Registry{
		questions:  questions,
		feedback:   feedback,
		results:    results,
		sessions:   sessions,
		opts:       opts,
		exams:      make(map[int64]*Exam),
		interviews: make(map[int64]*Interview),
	}
}

// Exam returns the user's exam machine.
func (r *Registry) Exam(userID int64) *Exam {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[userID]
	if !ok {
		e = NewExam(userID, r.questions, r.results, r.opts...)
		r.exams[userID] = e
	}
	return e
}

// Interview returns the user's interview controller.
func (r *Registry) Interview(userID int64) *Interview {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.interviews[userID]
	if !ok {
		iv = NewInterview(userID, r.feedback, r.sessions, r.opts...)
		r.interviews[userID] = iv
	}
	return iv
}

// Drop tears down a user's machines, releasing any held capture.
func (r *Registry) Drop(userID int64) {
	r.mu.Lock()
	iv := r.interviews[userID]
	delete(r.interviews, userID)
	delete(r.exams, userID)
	r.mu.Unlock()
	if iv != nil {
		iv.Close()
	}
}

// Close releases every held capture.
func (r *Registry) Close() {
	r.mu.Lock()
	ivs := make([]*Interview, 0, len(r.interviews))
	for _, iv := range r.interviews {
		ivs = append(ivs, iv)
	}
	r.mu.Unlock()
	for _, iv := range ivs {
		iv.Close()
	}
}
