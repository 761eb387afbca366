// Package prompts builds generation requests from whatever content is
// available for a course, escalating through three tiers: real extracted
// content, document metadata, and finally the course name alone.
package prompts

import (
	"fmt"
	"strings"

	"quizforge/internal/model"
)

// Tier identifies which content-availability strategy built a request.
type Tier string

const (
	// TierContent embeds the extracted corpus and requires questions
	// grounded in it.
	TierContent Tier = "content"
	// TierMetadata is used when extraction produced nothing usable but
	// PDF documents exist; the generator infers from names and URLs.
	TierMetadata Tier = "metadata"
	// TierNameOnly is the last resort: course name and file name hints.
	TierNameOnly Tier = "name-only"
)

// Request is a built generation request.
type Request struct {
	Tier   Tier
	System string
	User   string
}

const systemPrompt = "You are an experienced university instructor creating practice questions " +
	"for students preparing for an exam. You respond ONLY with a JSON array, no prose, " +
	"no Markdown fences."

// Build selects the highest available tier and constructs the request.
func Build(courseName string, corpus model.Corpus, docs []model.CourseDocument, kind model.PracticeKind, count int) Request {
	var sb strings.Builder
	var tier Tier

	switch {
	case corpus.Substantial:
		tier = TierContent
		sb.WriteString(fmt.Sprintf("Create practice questions for the course %q based on the following course material.\n\n", courseName))
		sb.WriteString("COURSE MATERIAL:\n")
		sb.WriteString(corpus.Text)
		sb.WriteString("\n\nEvery question MUST be grounded in the material above. ")
		sb.WriteString("Do NOT invent generic questions that could apply to any course.\n\n")
	case hasPDF(docs):
		tier = TierMetadata
		sb.WriteString(fmt.Sprintf("Create practice questions for the course %q.\n\n", courseName))
		sb.WriteString("Automatic text extraction from the course documents failed, ")
		sb.WriteString("but the following documents exist:\n")
		for _, d := range docs {
			if d.URL != "" {
				sb.WriteString(fmt.Sprintf("- %s (%s)\n", d.Name, d.URL))
			} else {
				sb.WriteString(fmt.Sprintf("- %s\n", d.Name))
			}
		}
		sb.WriteString("\nInfer the likely course content from the document names and the course title, ")
		sb.WriteString("and make the questions as course-specific as possible. Avoid generic filler.\n\n")
	default:
		tier = TierNameOnly
		sb.WriteString(fmt.Sprintf("Create practice questions for the course %q based solely on its name", courseName))
		if names := docNames(docs); len(names) > 0 {
			sb.WriteString(" and these file name hints: ")
			sb.WriteString(strings.Join(names, ", "))
		}
		sb.WriteString(".\n\n")
	}

	sb.WriteString(kindInstruction(kind, count))
	sb.WriteString("\n\n")
	sb.WriteString(schemaInstruction)

	return Request{Tier: tier, System: systemPrompt, User: sb.String()}
}

func kindInstruction(kind model.PracticeKind, count int) string {
	switch kind {
	case model.PracticeTrueFalse:
		return fmt.Sprintf("Create exactly %d true/false questions.", count)
	case model.PracticeOpen:
		return fmt.Sprintf("Create exactly %d open questions requiring a short written answer.", count)
	default:
		return fmt.Sprintf("Create exactly %d questions, mixing true/false, open, and multiple-choice kinds evenly.", count)
	}
}

const schemaInstruction = `Respond ONLY with a JSON array of objects in this exact shape:
[
  {
    "question": "the question text",
    "type": "true-false" | "open" | "multiple-choice",
    "options": ["A", "B", "C", "D"],
    "correctAnswer": "the correct answer",
    "explanation": "a short explanation",
    "topic": "the topic this question covers"
  }
]
The options field is required for multiple-choice questions (exactly 4 entries) and must be omitted otherwise. For true/false questions correctAnswer is "true" or "false". For multiple-choice questions correctAnswer must equal one of the options exactly.`

func hasPDF(docs []model.CourseDocument) bool {
	for _, d := range docs {
		if strings.EqualFold(d.MimeType, "application/pdf") ||
			strings.HasSuffix(strings.ToLower(d.Name), ".pdf") {
			return true
		}
	}
	return false
}

func docNames(docs []model.CourseDocument) []string {
	var names []string
	for _, d := range docs {
		if d.Name != "" {
			names = append(names, d.Name)
		}
	}
	return names
}
