package practice

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quizforge/internal/model"
)

// Validation failures. Both are fatal for the attempt (the caller falls
// back) but never for the process.
var (
	// ErrResponseNotJSON means no parseable JSON array could be
	// recovered from the model response.
	ErrResponseNotJSON = errors.New("response contains no valid JSON array")
	// ErrResponseEmpty means the array parsed but no element survived
	// validation.
	ErrResponseEmpty = errors.New("no valid questions after validation")
)

// rawQuestion mirrors the loose generation-response shape before
// validation tightens it into a model.PracticeQuestion.
type rawQuestion struct {
	Question      string   `json:"question"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Topic         string   `json:"topic"`
}

// ParseQuestions repairs and validates a free-form model response into
// typed questions. It strips Markdown fences, ignores prose around the
// array, drops elements missing a required field, and assigns positional
// IDs q1, q2, ... unique only within one session.
func ParseQuestions(raw string) ([]model.PracticeQuestion, error) {
	s := stripCodeFences(raw)

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		// Models sometimes prepend commentary before the array.
		idx := strings.Index(s, "[")
		if idx == -1 {
			return nil, fmt.Errorf("%w: no array start found", ErrResponseNotJSON)
		}
		s = s[idx:]
	}

	// A decoder stops after the first complete value, so prose trailing
	// the array does not break the parse.
	var items []rawQuestion
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseNotJSON, err)
	}

	var questions []model.PracticeQuestion
	for _, item := range items {
		if strings.TrimSpace(item.Question) == "" ||
			strings.TrimSpace(item.Type) == "" ||
			strings.TrimSpace(item.CorrectAnswer) == "" {
			continue
		}

		kind := model.ParseQuestionKind(item.Type)
		options := item.Options
		if kind == model.KindMultipleChoice {
			if len(options) != 4 {
				continue
			}
		} else {
			options = nil
		}

		questions = append(questions, model.PracticeQuestion{
			ID:            fmt.Sprintf("q%d", len(questions)+1),
			Text:          item.Question,
			Kind:          kind,
			Options:       options,
			CorrectAnswer: item.CorrectAnswer,
			Explanation:   item.Explanation,
			Topic:         item.Topic,
		})
	}

	if len(questions) == 0 {
		return nil, ErrResponseEmpty
	}
	return questions, nil
}

// stripCodeFences removes a surrounding Markdown code fence, with or
// without a language tag.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}

	// Drop the opening fence line (``` or ```json).
	if nl := strings.Index(trimmed, "\n"); nl != -1 {
		trimmed = trimmed[nl+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}

	if idx := strings.LastIndex(trimmed, "```"); idx != -1 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
