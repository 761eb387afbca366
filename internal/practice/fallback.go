package practice

import (
	"fmt"
	"strings"

	"quizforge/internal/model"
)

// The fallback generator is pure and deterministic: no I/O, no
// randomness. It preserves the external contract, so session storage,
// grading, and aggregation cannot tell fallback questions from
// generated ones.

// topicVocabulary maps document-name keywords to topic labels. Matched
// in order; each topic appears at most once.
var topicVocabulary = []struct {
	keyword string
	topic   string
}{
	{"algorithm", "Algorithms"},
	{"data structure", "Data Structures"},
	{"calculus", "Calculus"},
	{"algebra", "Algebra"},
	{"statistic", "Statistics"},
	{"probability", "Probability"},
	{"database", "Databases"},
	{"network", "Networks"},
	{"operating system", "Operating Systems"},
	{"programming", "Programming"},
	{"physic", "Physics"},
	{"chemi", "Chemistry"},
	{"biolog", "Biology"},
	{"econom", "Economics"},
	{"marketing", "Marketing"},
	{"logistic", "Logistics"},
	{"history", "History"},
	{"psycholog", "Psychology"},
}

// genericTopics is the default cycle when no document name matches the
// vocabulary.
var genericTopics = []string{"Introduction", "Core Concepts", "Advanced Topics", "Applications"}

// InferTopics derives a topic list from document names by keyword
// matching. It always returns a non-empty list.
func InferTopics(docs []model.CourseDocument) []string {
	var topics []string
	seen := make(map[string]bool)
	for _, entry := range topicVocabulary {
		for _, d := range docs {
			if strings.Contains(strings.ToLower(d.Name), entry.keyword) && !seen[entry.topic] {
				seen[entry.topic] = true
				topics = append(topics, entry.topic)
				break
			}
		}
	}
	if len(topics) == 0 {
		return genericTopics
	}
	return topics
}

// GenerateFallback synthesizes exactly count questions offline, cycling
// through the requested kind mixture and the topic list in round-robin
// order. It cannot fail.
func GenerateFallback(courseName string, kind model.PracticeKind, count int, topics []string) []model.PracticeQuestion {
	if len(topics) == 0 {
		topics = genericTopics
	}
	kinds := kind.QuestionKinds()

	questions := make([]model.PracticeQuestion, 0, count)
	for i := 0; i < count; i++ {
		q := buildFallbackQuestion(courseName, kinds[i%len(kinds)], topics[i%len(topics)], i)
		q.ID = fmt.Sprintf("q%d", i+1)
		questions = append(questions, q)
	}
	return questions
}

func buildFallbackQuestion(courseName string, kind model.QuestionKind, topic string, index int) model.PracticeQuestion {
	switch kind {
	case model.KindTrueFalse:
		return buildFallbackTrueFalse(courseName, topic, index)
	case model.KindMultipleChoice:
		return buildFallbackMultipleChoice(courseName, topic, index)
	default:
		return buildFallbackOpen(courseName, topic)
	}
}

func buildFallbackTrueFalse(courseName, topic string, index int) model.PracticeQuestion {
	// Alternate between a true statement and a false one so the answer
	// key is not uniform.
	if index%2 == 0 {
		return model.PracticeQuestion{
			Kind:          model.KindTrueFalse,
			Text:          fmt.Sprintf("%s is one of the areas covered in the course %q.", topic, courseName),
			CorrectAnswer: "true",
			Explanation:   fmt.Sprintf("%s appears in the course material of %q.", topic, courseName),
			Topic:         topic,
		}
	}
	return model.PracticeQuestion{
		Kind:          model.KindTrueFalse,
		Text:          fmt.Sprintf("The course %q can be completed without engaging with %s at all.", courseName, topic),
		CorrectAnswer: "false",
		Explanation:   fmt.Sprintf("%s is part of the course content and is examined.", topic),
		Topic:         topic,
	}
}

func buildFallbackMultipleChoice(courseName, topic string, index int) model.PracticeQuestion {
	correct := fmt.Sprintf("It is a core subject area of %q.", courseName)
	distractors := []string{
		fmt.Sprintf("It is unrelated to %q.", courseName),
		"It is only mentioned as optional further reading.",
		"It was removed from the curriculum.",
	}

	// Rotate the correct answer's position so it is not always A.
	options := make([]string, 0, 4)
	pos := index % 4
	for i := 0; i < 4; i++ {
		if i == pos {
			options = append(options, correct)
		} else {
			options = append(options, distractors[0])
			distractors = distractors[1:]
		}
	}

	return model.PracticeQuestion{
		Kind:          model.KindMultipleChoice,
		Text:          fmt.Sprintf("What role does %s play in the course %q?", topic, courseName),
		Options:       options,
		CorrectAnswer: correct,
		Explanation:   fmt.Sprintf("%s is a central part of %q.", topic, courseName),
		Topic:         topic,
	}
}

func buildFallbackOpen(courseName, topic string) model.PracticeQuestion {
	return model.PracticeQuestion{
		Kind: model.KindOpen,
		Text: fmt.Sprintf("Explain the most important concepts of %s as covered in the course %q, and give one concrete example.", topic, courseName),
		CorrectAnswer: fmt.Sprintf(
			"%s covers fundamental principles, central methods, and practical applications discussed throughout the course %s, including concrete examples from the course material.",
			topic, courseName),
		Explanation: fmt.Sprintf("A good answer names the central principles of %s and connects them to an example.", topic),
		Topic:       topic,
	}
}
