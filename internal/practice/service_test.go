package practice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quizforge/internal/corpus"
	"quizforge/internal/extract"
	"quizforge/internal/llm"
	"quizforge/internal/model"
)

type fakeDocs struct {
	docs    []model.CourseDocument
	listErr error
}

func (f *fakeDocs) GetDocument(ctx context.Context, documentID string) (model.CourseDocument, error) {
	for _, d := range f.docs {
		if d.ID == documentID {
			return d, nil
		}
	}
	return model.CourseDocument{}, errors.New("not found")
}

func (f *fakeDocs) ListByCourse(ctx context.Context, courseID string) ([]model.CourseDocument, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.docs, nil
}

type fakeSessions struct {
	sessions  map[string]model.PracticeSession
	results   []model.PracticeResult
	createErr error
	saveErr   error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]model.PracticeSession)}
}

func (f *fakeSessions) CreateSession(ctx context.Context, session model.PracticeSession) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.sessions[session.ID] = session
	return session.ID, nil
}

func (f *fakeSessions) GetSession(ctx context.Context, sessionID string) (model.PracticeSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return model.PracticeSession{}, errors.New("session not found")
	}
	return s, nil
}

func (f *fakeSessions) MarkCompleted(ctx context.Context, sessionID string) error {
	s, ok := f.sessions[sessionID]
	if !ok {
		return errors.New("session not found")
	}
	s.Status = model.StatusCompleted
	f.sessions[sessionID] = s
	return nil
}

func (f *fakeSessions) SaveResult(ctx context.Context, result model.PracticeResult) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.results = append(f.results, result)
	return result.ID, nil
}

func (f *fakeSessions) ListResults(ctx context.Context, courseID, ownerID string) ([]model.PracticeResult, error) {
	var out []model.PracticeResult
	for _, r := range f.results {
		if r.CourseID == courseID && r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// newTestService wires a service against an in-process document server so
// extraction runs for real without touching the network.
func newTestService(t *testing.T, docs *fakeDocs, sessions *fakeSessions, gen llm.Generator) *Service {
	t.Helper()
	assembler := corpus.NewAssembler(extract.New(nil))
	return NewService(docs, sessions, assembler, gen)
}

func serveText(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeneratePracticeSuccess(t *testing.T) {
	srv := serveText(t, strings.Repeat("Dijkstra relaxes edges in order of distance. ", 10))
	docs := &fakeDocs{docs: []model.CourseDocument{
		{ID: "d1", Name: "algorithms.txt", MimeType: "text/plain", URL: srv.URL + "/algorithms.txt"},
	}}
	sessions := newFakeSessions()
	gen := &fakeGenerator{response: goodResponse}

	svc := newTestService(t, docs, sessions, gen)
	session, err := svc.GeneratePractice(context.Background(), "course-1", "Algorithms", "user-1", model.PracticeMixed, 3)
	if err != nil {
		t.Fatalf("GeneratePractice() error = %v", err)
	}

	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
	if len(session.Questions) != 3 {
		t.Errorf("session has %d questions, want 3", len(session.Questions))
	}
	if session.Status != model.StatusInProgress {
		t.Errorf("session status = %q, want %q", session.Status, model.StatusInProgress)
	}
	if _, ok := sessions.sessions[session.ID]; !ok {
		t.Error("session was not persisted")
	}
}

func TestGeneratePracticeFallsBackOnGenerationError(t *testing.T) {
	pdfBody := "%PDF-1.4\n"
	for i := 0; i < 12; i++ {
		pdfBody += "BT (Shortest path algorithms relax graph edges repeatedly) Tj ET\n"
	}
	srv := serveText(t, pdfBody)
	docs := &fakeDocs{docs: []model.CourseDocument{
		{ID: "d1", Name: "graph-algorithms.pdf", MimeType: "application/pdf", URL: srv.URL + "/graph-algorithms.pdf"},
	}}
	sessions := newFakeSessions()
	gen := &fakeGenerator{err: &llm.GenerationError{Kind: llm.FailureQuotaExceeded, Err: errors.New("quota exceeded")}}

	svc := newTestService(t, docs, sessions, gen)
	session, err := svc.GeneratePractice(context.Background(), "course-1", "Algorithms", "user-1", model.PracticeMixed, 5)
	if err != nil {
		t.Fatalf("GeneratePractice() error = %v, want fallback instead", err)
	}

	if len(session.Questions) != 5 {
		t.Fatalf("fallback produced %d questions, want 5", len(session.Questions))
	}
	// The document name carries "algorithm", so the fallback must use the
	// inferred topic rather than a generic one.
	for i, q := range session.Questions {
		if q.Topic != "Algorithms" {
			t.Errorf("question %d topic = %q, want Algorithms", i, q.Topic)
		}
	}
	if session.Status != model.StatusInProgress {
		t.Errorf("session status = %q, want %q", session.Status, model.StatusInProgress)
	}
}

func TestGeneratePracticeFallsBackOnInvalidResponse(t *testing.T) {
	docs := &fakeDocs{}
	sessions := newFakeSessions()
	gen := &fakeGenerator{response: "I'm sorry, I cannot help with that."}

	svc := newTestService(t, docs, sessions, gen)
	session, err := svc.GeneratePractice(context.Background(), "course-1", "Philosophy", "user-1", model.PracticeTrueFalse, 10)
	if err != nil {
		t.Fatalf("GeneratePractice() error = %v, want fallback instead", err)
	}
	if len(session.Questions) != 10 {
		t.Fatalf("fallback produced %d questions, want 10", len(session.Questions))
	}
	for i, q := range session.Questions {
		if q.Kind != model.KindTrueFalse {
			t.Errorf("question %d kind = %q, want true-false", i, q.Kind)
		}
	}
}

func TestGeneratePracticeStorageFailureIsFatal(t *testing.T) {
	docs := &fakeDocs{}
	sessions := newFakeSessions()
	sessions.createErr = errors.New("disk full")
	gen := &fakeGenerator{response: goodResponse}

	svc := newTestService(t, docs, sessions, gen)
	_, err := svc.GeneratePractice(context.Background(), "course-1", "Algorithms", "user-1", model.PracticeMixed, 3)
	if err == nil {
		t.Fatal("GeneratePractice() must surface session persistence failures")
	}
}

func TestGeneratePracticeListFailureIsFatal(t *testing.T) {
	docs := &fakeDocs{listErr: errors.New("store unavailable")}
	svc := newTestService(t, docs, newFakeSessions(), &fakeGenerator{response: goodResponse})

	_, err := svc.GeneratePractice(context.Background(), "course-1", "Algorithms", "user-1", model.PracticeMixed, 3)
	if err == nil {
		t.Fatal("GeneratePractice() must surface document listing failures")
	}
}

func TestGeneratePracticeRejectsNonPositiveCount(t *testing.T) {
	svc := newTestService(t, &fakeDocs{}, newFakeSessions(), &fakeGenerator{})
	for _, count := range []int{0, -1} {
		if _, err := svc.GeneratePractice(context.Background(), "c", "C", "u", model.PracticeMixed, count); err == nil {
			t.Errorf("GeneratePractice(count=%d) succeeded, want error", count)
		}
	}
}

func TestSubmitAnswers(t *testing.T) {
	docs := &fakeDocs{}
	sessions := newFakeSessions()
	gen := &fakeGenerator{err: &llm.GenerationError{Kind: llm.FailureNoAPIKey, Err: errors.New("no api key")}}

	svc := newTestService(t, docs, sessions, gen)
	session, err := svc.GeneratePractice(context.Background(), "course-1", "Algorithms", "user-1", model.PracticeTrueFalse, 2)
	if err != nil {
		t.Fatalf("GeneratePractice() error = %v", err)
	}

	answers := []string{session.Questions[0].CorrectAnswer, "wrong"}
	result, err := svc.SubmitAnswers(context.Background(), session.ID, answers)
	if err != nil {
		t.Fatalf("SubmitAnswers() error = %v", err)
	}

	if result.CorrectCount != 1 || result.TotalQuestions != 2 {
		t.Errorf("result counts = %d of %d, want 1 of 2", result.CorrectCount, result.TotalQuestions)
	}
	if got := sessions.sessions[session.ID].Status; got != model.StatusCompleted {
		t.Errorf("session status after submit = %q, want %q", got, model.StatusCompleted)
	}
	if len(sessions.results) != 1 {
		t.Fatalf("stored %d results, want 1", len(sessions.results))
	}

	// A second submission must be rejected: the session is completed.
	if _, err := svc.SubmitAnswers(context.Background(), session.ID, answers); err == nil {
		t.Error("SubmitAnswers() on a completed session must fail")
	}
	if len(sessions.results) != 1 {
		t.Errorf("second submit stored another result: %d", len(sessions.results))
	}
}

func TestSubmitAnswersLengthMismatch(t *testing.T) {
	sessions := newFakeSessions()
	sessions.sessions["s1"] = model.PracticeSession{
		ID:     "s1",
		Status: model.StatusInProgress,
		Questions: []model.PracticeQuestion{
			{ID: "q1", Kind: model.KindTrueFalse, CorrectAnswer: "true"},
		},
	}

	svc := newTestService(t, &fakeDocs{}, sessions, &fakeGenerator{})
	if _, err := svc.SubmitAnswers(context.Background(), "s1", []string{"true", "extra"}); err == nil {
		t.Error("SubmitAnswers() must reject an answer count mismatch")
	}
}

func TestSubmitAnswersUnknownSession(t *testing.T) {
	svc := newTestService(t, &fakeDocs{}, newFakeSessions(), &fakeGenerator{})
	if _, err := svc.SubmitAnswers(context.Background(), "missing", nil); err == nil {
		t.Error("SubmitAnswers() must fail for an unknown session")
	}
}

func TestCourseStats(t *testing.T) {
	docs := &fakeDocs{}
	sessions := newFakeSessions()
	gen := &fakeGenerator{err: &llm.GenerationError{Kind: llm.FailureTransport, Err: errors.New("connection refused")}}

	svc := newTestService(t, docs, sessions, gen)
	for i := 0; i < 2; i++ {
		session, err := svc.GeneratePractice(context.Background(), "course-1", "Algorithms", "user-1", model.PracticeTrueFalse, 2)
		if err != nil {
			t.Fatalf("GeneratePractice() error = %v", err)
		}
		// Answer everything wrong so every topic registers as weak.
		if _, err := svc.SubmitAnswers(context.Background(), session.ID, []string{"wrong", "wrong"}); err != nil {
			t.Fatalf("SubmitAnswers() error = %v", err)
		}
	}

	stats, err := svc.CourseStats(context.Background(), "course-1", "user-1")
	if err != nil {
		t.Fatalf("CourseStats() error = %v", err)
	}
	if stats.TotalSessions != 2 {
		t.Errorf("TotalSessions = %d, want 2", stats.TotalSessions)
	}
	if stats.AverageScorePercent != 0 {
		t.Errorf("AverageScorePercent = %v, want 0", stats.AverageScorePercent)
	}
	if len(stats.TopWeakTopics) == 0 {
		t.Error("TopWeakTopics must not be empty after all-wrong sessions")
	}

	// A different user has no history.
	other, err := svc.CourseStats(context.Background(), "course-1", "user-2")
	if err != nil {
		t.Fatalf("CourseStats() error = %v", err)
	}
	if other.TotalSessions != 0 {
		t.Errorf("other user TotalSessions = %d, want 0", other.TotalSessions)
	}
}
