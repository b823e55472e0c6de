// Package normalize turns raw completion text into typed records. Models wrap
// JSON in markdown fences, drop optional fields and occasionally emit garbage;
// everything downstream of this package sees only validated values.
package normalize

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/metrics"
)

// Shape tags identify the expected payload of a completion.
type Shape string

const (
	ShapeSkillGap          Shape = "skill-gap"
	ShapeExamQuestions     Shape = "exam-questions"
	ShapeInterviewFeedback Shape = "interview-feedback"
	ShapeCodeValidation    Shape = "code-validation"
)

const fence = "```"

// ExtractJSON returns the JSON candidate inside text. The first ```json fence
// wins (tag matched case-insensitively and ended by whitespace, so ```jsonc
// is not one); otherwise the first bare fence pair; otherwise the whole text.
// Anything after the closing fence is dropped and an unclosed fence runs to
// the end of the text.
func ExtractJSON(text string) string {
	if body, ok := jsonFence(text); ok {
		return strings.TrimSpace(untilFence(body))
	}
	if i := strings.Index(text, fence); i >= 0 {
		body := dropTagLine(text[i+len(fence):])
		return strings.TrimSpace(untilFence(body))
	}
	return strings.TrimSpace(text)
}

func untilFence(s string) string {
	if j := strings.Index(s, fence); j >= 0 {
		return s[:j]
	}
	return s
}

// dropTagLine removes a language tag such as "javascript" directly after an
// opening fence.
func dropTagLine(s string) string {
	nl := strings.IndexByte(s, '\n')
	if nl <= 0 {
		return s
	}
	tag := strings.TrimSpace(s[:nl])
	if tag == "" {
		return s
	}
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '+') {
			return s
		}
	}
	return s[nl+1:]
}

// jsonFence returns the text after the first ```json tag.
func jsonFence(text string) (string, bool) {
	const tag = fence + "json"
	for off := 0; ; {
		i := indexFold(text[off:], tag)
		if i < 0 {
			return "", false
		}
		rest := text[off+i+len(tag):]
		if rest == "" || strings.IndexByte(" \t\r\n", rest[0]) >= 0 {
			return rest, true
		}
		off += i + len(tag)
	}
}

// indexFold is strings.Index with ASCII case folding on substr.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

// decode extracts the JSON candidate from text and decodes it into v.
// Syntax errors are malformed responses; type mismatches are schema
// violations.
func decode(shape Shape, text string, v any) error {
	candidate := ExtractJSON(text)
	if candidate == "" || !json.Valid([]byte(candidate)) {
		var syntaxErr error
		if candidate == "" {
			syntaxErr = errors.New("empty response")
		} else {
			var anyValue any
			syntaxErr = json.Unmarshal([]byte(candidate), &anyValue)
		}
		return fail(shape, apperr.MalformedResponse(text, syntaxErr))
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fail(shape, apperr.Wrap(apperr.KindSchema, err, "%s: field %q has wrong type", shape, typeErr.Field))
		}
		return fail(shape, apperr.Wrap(apperr.KindSchema, err, "%s", shape))
	}
	return nil
}

func missing(shape Shape, field string) error {
	return fail(shape, apperr.New(apperr.KindSchema, "%s: missing required field %q", shape, field))
}

// fail logs and counts a normalization failure once.
func fail(shape Shape, err *apperr.Error) error {
	metrics.NormalizeFailures.WithLabelValues(string(shape), string(err.Kind)).Inc()
	attrs := []any{"shape", shape, "kind", err.Kind, "error", err}
	if err.Snippet != "" {
		attrs = append(attrs, "snippet", err.Snippet)
	}
	slog.Warn("normalize completion", attrs...)
	return err
}

// orEmpty replaces a nil slice with an empty one so lists encode as [].
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
