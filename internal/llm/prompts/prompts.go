package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/careerprep/internal/model"
)

// Templates holds the built-in prompt templates.
//
//go:embed templates/*.txt
var Templates embed.FS

var (
	userAnswerRegex = regexp.MustCompile(`(?i)</?\s*user-answer\b[^>]*>`)
	userInputRegex  = regexp.MustCompile(`(?i)</?\s*user-input\b[^>]*>`)
)

const (
	maxAnswerRunes = 10000
	maxFieldRunes  = 500
)

// Name identifies a prompt template.
type Name string

const (
	SkillGap    Name = "skill_gap"
	Exam        Name = "exam"
	Interview   Name = "interview"
	Explanation Name = "explanation"
	Validate    Name = "validate"
)

var names = []Name{SkillGap, Exam, Interview, Explanation, Validate}

var (
	mu        sync.RWMutex
	templates map[Name]*template.Template
)

var funcs = template.FuncMap{"join": strings.Join}

// SkillGapData holds template data for skill-gap prompts.
type SkillGapData struct {
	Role     string
	Skills   []string
	PrepTime string
}

// ExamData holds template data for exam question prompts.
type ExamData struct {
	Subject string
	Count   int
}

// AnswerData holds template data for explanation and validation prompts.
type AnswerData struct {
	Question      string
	Answer        string
	CorrectAnswer string
}

// Load parses every prompt template from fsys. Files are expected at
// templates/<name>.txt. A later call replaces the loaded set.
func Load(fsys fs.FS) error {
	loaded := make(map[Name]*template.Template, len(names))
	for _, n := range names {
		file := "templates/" + string(n) + ".txt"
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read prompt file %s: %w", file, err)
		}
		tmpl, err := template.New(string(n)).Funcs(funcs).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse prompt template %s: %w", file, err)
		}
		loaded[n] = tmpl
	}

	mu.Lock()
	templates = loaded
	mu.Unlock()
	return nil
}

func render(n Name, data any) (string, error) {
	mu.RLock()
	loaded := templates != nil
	tmpl, ok := templates[n]
	mu.RUnlock()
	if !loaded {
		return "", errors.New("templates not initialized: call Load first")
	}
	if !ok {
		return "", errors.New("unknown prompt template: " + string(n))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", n, err)
	}
	return buf.String(), nil
}

// BuildSkillGap builds the skill-gap analysis prompt.
func BuildSkillGap(role string, skills []string, prepTime string) (string, error) {
	clean := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = sanitizeField(s); s != "" {
			clean = append(clean, s)
		}
	}
	prep := sanitizeField(prepTime)
	if prep == "" {
		prep = "not specified"
	}
	return render(SkillGap, SkillGapData{
		Role:     sanitizeField(role),
		Skills:   clean,
		PrepTime: prep,
	})
}

// BuildExam builds the question-generation prompt for a subject.
func BuildExam(subject string, count int) (string, error) {
	return render(Exam, ExamData{Subject: subject, Count: count})
}

// BuildInterview builds the fixed behavioral-interview feedback prompt.
func BuildInterview() (string, error) {
	return render(Interview, struct{ Prompt string }{Prompt: model.InterviewQuestion})
}

// BuildExplanation builds the prompt explaining a question's correct answer.
func BuildExplanation(question, answer, correct string) (string, error) {
	return render(Explanation, AnswerData{
		Question:      sanitizeField(question),
		Answer:        sanitizeAnswer(answer),
		CorrectAnswer: sanitizeField(correct),
	})
}

// BuildValidation builds the prompt judging a free-form coding answer.
func BuildValidation(question, answer, correct string) (string, error) {
	return render(Validate, AnswerData{
		Question:      sanitizeField(question),
		Answer:        sanitizeAnswer(answer),
		CorrectAnswer: sanitizeField(correct),
	})
}

func sanitizeField(s string) string {
	s = userInputRegex.ReplaceAllString(s, "")
	s = userAnswerRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxFieldRunes {
		s = string([]rune(s)[:maxFieldRunes])
	}
	return s
}

func sanitizeAnswer(answer string) string {
	answer = userAnswerRegex.ReplaceAllString(answer, "")
	answer = userInputRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
