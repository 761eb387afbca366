package model

import (
	"errors"
	"strings"
	"time"
)

// QuestionKind is the wire-level question type produced by generation.
type QuestionKind string

const (
	KindTrueFalse      QuestionKind = "true-false"
	KindOpen           QuestionKind = "open"
	KindMultipleChoice QuestionKind = "multiple-choice"
)

// ParseQuestionKind normalizes a loosely-spelled type value from a model
// response. Unknown values map to the open kind.
func ParseQuestionKind(s string) QuestionKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true-false", "truefalse", "true_false", "boolean":
		return KindTrueFalse
	case "multiple-choice", "multiplechoice", "multiple_choice", "mc":
		return KindMultipleChoice
	default:
		return KindOpen
	}
}

// PracticeKind selects the mixture of question kinds for a session.
type PracticeKind string

const (
	PracticeTrueFalse PracticeKind = "true-false"
	PracticeOpen      PracticeKind = "open-questions"
	PracticeMixed     PracticeKind = "mixed"
)

// QuestionKinds returns the question kinds a practice kind cycles through.
func (k PracticeKind) QuestionKinds() []QuestionKind {
	switch k {
	case PracticeTrueFalse:
		return []QuestionKind{KindTrueFalse}
	case PracticeOpen:
		return []QuestionKind{KindOpen}
	default:
		return []QuestionKind{KindTrueFalse, KindOpen, KindMultipleChoice}
	}
}

// SessionStatus represents the status of a practice session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// CourseDocument is one uploaded document belonging to a course. Records
// arrive from the document store with arbitrary field presence, so the
// struct keeps optional fields as zero values and Validate guards the
// boundary.
type CourseDocument struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MimeType  string `json:"mimeType,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Validate checks the fields every downstream component relies on.
func (d CourseDocument) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("document id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("document name is required")
	}
	if d.SizeBytes < 0 {
		return errors.New("document size must not be negative")
	}
	return nil
}

// ExtractedContent is the best-effort text pulled from one document.
// Extracted is false when the text falls below the substance threshold,
// so near-empty output is never mistaken for real content.
type ExtractedContent struct {
	DocumentID string
	Text       string
	CharCount  int
	Extracted  bool
}

// Corpus is the ordered concatenation of extracted text for a course.
type Corpus struct {
	Text          string
	Substantial   bool
	ExtractedDocs int
	FailedDocs    int
}

// PracticeQuestion is one generated question. The JSON tags match the
// generation-response shape, so a question list marshals back into the
// exact format the validator accepts.
type PracticeQuestion struct {
	ID            string       `json:"id,omitempty"`
	Text          string       `json:"question"`
	Kind          QuestionKind `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
	Topic         string       `json:"topic,omitempty"`
}

// PracticeSession is one user's generated question set for a course.
type PracticeSession struct {
	ID            string             `json:"id"`
	CourseID      string             `json:"course_id"`
	CourseName    string             `json:"course_name"`
	Kind          PracticeKind       `json:"kind"`
	QuestionCount int                `json:"question_count"`
	Questions     []PracticeQuestion `json:"questions"`
	OwnerID       string             `json:"owner_id"`
	Status        SessionStatus      `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
}

// PracticeAnswer is one graded answer. Score is set only for open
// questions (0-100).
type PracticeAnswer struct {
	QuestionID string `json:"question_id"`
	UserAnswer string `json:"user_answer"`
	IsCorrect  bool   `json:"is_correct"`
	Score      *int   `json:"score,omitempty"`
}

// PracticeResult is the aggregate of one completed session. Written
// exactly once per session.
type PracticeResult struct {
	ID             string           `json:"id"`
	SessionID      string           `json:"session_id"`
	CourseID       string           `json:"course_id"`
	OwnerID        string           `json:"owner_id"`
	ScorePercent   float64          `json:"score_percent"`
	TotalQuestions int              `json:"total_questions"`
	CorrectCount   int              `json:"correct_count"`
	IncorrectCount int              `json:"incorrect_count"`
	Answers        []PracticeAnswer `json:"answers"`
	WeakTopics     []string         `json:"weak_topics"`
	CompletedAt    time.Time        `json:"completed_at"`
}

// CourseWeakTopicStats is recomputed on demand from the stored results
// for a course and user; it is never persisted on its own.
type CourseWeakTopicStats struct {
	TotalSessions         int       `json:"total_sessions"`
	AverageScorePercent   float64   `json:"average_score_percent"`
	MostRecentCompletedAt time.Time `json:"most_recent_completed_at"`
	TopWeakTopics         []string  `json:"top_weak_topics"`
}
