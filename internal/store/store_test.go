package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"quizforge/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := model.CourseDocument{
		ID:        "d1",
		Name:      "script.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 1024,
		URL:       "http://files/script.pdf",
	}
	if err := s.PutDocument(ctx, "course-1", doc); err != nil {
		t.Fatalf("PutDocument() error = %v", err)
	}

	got, err := s.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got != doc {
		t.Errorf("GetDocument() = %+v, want %+v", got, doc)
	}

	docs, err := s.ListByCourse(ctx, "course-1")
	if err != nil {
		t.Fatalf("ListByCourse() error = %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "d1" {
		t.Errorf("ListByCourse() = %+v", docs)
	}

	// Another course sees nothing.
	other, err := s.ListByCourse(ctx, "course-2")
	if err != nil {
		t.Fatalf("ListByCourse() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListByCourse(other) = %+v, want empty", other)
	}

	if err := s.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if _, err := s.GetDocument(ctx, "d1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetDocument() after delete error = %v, want sql.ErrNoRows", err)
	}
}

func TestPutDocumentRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.PutDocument(context.Background(), "course-1", model.CourseDocument{Name: "no id"})
	if err == nil {
		t.Error("PutDocument() accepted a document without an ID")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := model.PracticeSession{
		ID:            "s1",
		CourseID:      "course-1",
		CourseName:    "Algorithms",
		Kind:          model.PracticeMixed,
		QuestionCount: 2,
		Questions: []model.PracticeQuestion{
			{ID: "q1", Text: "Is quicksort stable?", Kind: model.KindTrueFalse, CorrectAnswer: "false", Topic: "Sorting"},
			{ID: "q2", Text: "Define a heap.", Kind: model.KindOpen, CorrectAnswer: "A tree satisfying the heap property.", Topic: "Heaps"},
		},
		OwnerID:   "user-1",
		Status:    model.StatusInProgress,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if _, err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.CourseName != session.CourseName || got.Kind != session.Kind || got.Status != session.Status {
		t.Errorf("GetSession() = %+v", got)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("GetSession() returned %d questions, want 2", len(got.Questions))
	}
	if got.Questions[1].CorrectAnswer != session.Questions[1].CorrectAnswer {
		t.Errorf("questions did not survive the round trip: %+v", got.Questions)
	}

	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetSession(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestMarkCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := model.PracticeSession{
		ID: "s1", CourseID: "c", CourseName: "C", Kind: model.PracticeOpen,
		OwnerID: "u", Status: model.StatusInProgress, CreatedAt: time.Now(),
	}
	if _, err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := s.MarkCompleted(ctx, "s1"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, model.StatusCompleted)
	}

	if err := s.MarkCompleted(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("MarkCompleted(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestSaveResultOncePerSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := model.PracticeSession{
		ID: "s1", CourseID: "course-1", CourseName: "C", Kind: model.PracticeMixed,
		OwnerID: "user-1", Status: model.StatusInProgress, CreatedAt: time.Now(),
	}
	if _, err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	score := 80
	result := model.PracticeResult{
		ID:             "r1",
		SessionID:      "s1",
		CourseID:       "course-1",
		OwnerID:        "user-1",
		ScorePercent:   50,
		TotalQuestions: 2,
		CorrectCount:   1,
		IncorrectCount: 1,
		Answers: []model.PracticeAnswer{
			{QuestionID: "q1", UserAnswer: "true", IsCorrect: true},
			{QuestionID: "q2", UserAnswer: "a heap", IsCorrect: false, Score: &score},
		},
		WeakTopics:  []string{"Heaps"},
		CompletedAt: time.Now().UTC().Truncate(time.Second),
	}
	if _, err := s.SaveResult(ctx, result); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	// session_id is unique, so a second result for the same session fails.
	dup := result
	dup.ID = "r2"
	if _, err := s.SaveResult(ctx, dup); err == nil {
		t.Error("SaveResult() accepted a second result for the same session")
	}

	results, err := s.ListResults(ctx, "course-1", "user-1")
	if err != nil {
		t.Fatalf("ListResults() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ListResults() returned %d results, want 1", len(results))
	}
	got := results[0]
	if got.ScorePercent != 50 || got.CorrectCount != 1 {
		t.Errorf("result = %+v", got)
	}
	if len(got.Answers) != 2 || got.Answers[1].Score == nil || *got.Answers[1].Score != 80 {
		t.Errorf("answers did not survive the round trip: %+v", got.Answers)
	}
	if len(got.WeakTopics) != 1 || got.WeakTopics[0] != "Heaps" {
		t.Errorf("weak topics = %v", got.WeakTopics)
	}
}

func TestListResultsOrderedByCompletion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"r-late", "r-early"} {
		session := model.PracticeSession{
			ID: "s-" + id, CourseID: "course-1", CourseName: "C",
			Kind: model.PracticeMixed, OwnerID: "user-1",
			Status: model.StatusCompleted, CreatedAt: base,
		}
		if _, err := s.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
		completed := base.Add(time.Duration(1-i) * time.Hour)
		result := model.PracticeResult{
			ID: id, SessionID: "s-" + id, CourseID: "course-1", OwnerID: "user-1",
			Answers: []model.PracticeAnswer{}, WeakTopics: []string{},
			CompletedAt: completed,
		}
		if _, err := s.SaveResult(ctx, result); err != nil {
			t.Fatalf("SaveResult() error = %v", err)
		}
	}

	results, err := s.ListResults(ctx, "course-1", "user-1")
	if err != nil {
		t.Fatalf("ListResults() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("ListResults() returned %d results, want 2", len(results))
	}
	if results[0].ID != "r-early" || results[1].ID != "r-late" {
		t.Errorf("results out of order: %s, %s", results[0].ID, results[1].ID)
	}
}
