// Package practice implements the question-generation pipeline and its
// downstream grading and aggregation. The propagation policy is strict
// graceful degradation: every generation-side failure routes to the
// offline fallback generator, while storage failures stay fatal for the
// operation that hit them.
package practice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quizforge/internal/corpus"
	"quizforge/internal/llm"
	"quizforge/internal/llm/prompts"
	"quizforge/internal/model"
)

// DocumentStore is the document side of the external collaborator.
type DocumentStore interface {
	GetDocument(ctx context.Context, documentID string) (model.CourseDocument, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.CourseDocument, error)
}

// SessionStore is the session and result side of the external
// collaborator.
type SessionStore interface {
	CreateSession(ctx context.Context, session model.PracticeSession) (string, error)
	GetSession(ctx context.Context, sessionID string) (model.PracticeSession, error)
	MarkCompleted(ctx context.Context, sessionID string) error
	SaveResult(ctx context.Context, result model.PracticeResult) (string, error)
	ListResults(ctx context.Context, courseID, ownerID string) ([]model.PracticeResult, error)
}

// Service orchestrates the practice pipeline.
type Service struct {
	docs      DocumentStore
	sessions  SessionStore
	assembler *corpus.Assembler
	generator llm.Generator
}

// NewService creates the pipeline service.
func NewService(docs DocumentStore, sessions SessionStore, assembler *corpus.Assembler, generator llm.Generator) *Service {
	return &Service{
		docs:      docs,
		sessions:  sessions,
		assembler: assembler,
		generator: generator,
	}
}

// GeneratePractice runs the full pipeline for one course: assemble the
// corpus, build a tiered prompt, call the generation service, validate
// the response, and persist a session. Any generation-side failure
// falls back to deterministic offline synthesis; only storage failures
// surface to the caller.
func (s *Service) GeneratePractice(ctx context.Context, courseID, courseName, ownerID string, kind model.PracticeKind, count int) (model.PracticeSession, error) {
	if count <= 0 {
		return model.PracticeSession{}, fmt.Errorf("question count must be positive, got %d", count)
	}

	docs, err := s.docs.ListByCourse(ctx, courseID)
	if err != nil {
		return model.PracticeSession{}, fmt.Errorf("list course documents: %w", err)
	}

	c := s.assembler.Assemble(ctx, docs)
	req := prompts.Build(courseName, c, docs, kind, count)
	slog.Info("practice generation started",
		"course_id", courseID,
		"tier", req.Tier,
		"kind", kind,
		"count", count,
		"documents", len(docs),
	)

	questions, genErr := s.generateQuestions(ctx, req)
	if genErr != nil {
		slog.Warn("generation failed, using offline fallback",
			"course_id", courseID, "error", genErr)
		questions = GenerateFallback(courseName, kind, count, InferTopics(docs))
	}

	session := model.PracticeSession{
		ID:            uuid.NewString(),
		CourseID:      courseID,
		CourseName:    courseName,
		Kind:          kind,
		QuestionCount: len(questions),
		Questions:     questions,
		OwnerID:       ownerID,
		Status:        model.StatusInProgress,
		CreatedAt:     time.Now(),
	}

	// A generation that succeeded but whose session cannot be persisted
	// is a failure, never silently dropped.
	if _, err := s.sessions.CreateSession(ctx, session); err != nil {
		return model.PracticeSession{}, fmt.Errorf("persist session: %w", err)
	}

	slog.Info("practice session created",
		"session_id", session.ID,
		"course_id", courseID,
		"questions", len(questions),
		"fallback", genErr != nil,
	)
	return session, nil
}

func (s *Service) generateQuestions(ctx context.Context, req prompts.Request) ([]model.PracticeQuestion, error) {
	raw, err := s.generator.Generate(ctx, req.System, req.User)
	if err != nil {
		return nil, err
	}
	questions, err := ParseQuestions(raw)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// SubmitAnswers grades a session's answers positionally, persists the
// result, and marks the session completed. The result is written at
// most once per session.
func (s *Service) SubmitAnswers(ctx context.Context, sessionID string, userAnswers []string) (model.PracticeResult, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return model.PracticeResult{}, fmt.Errorf("load session: %w", err)
	}
	if session.Status != model.StatusInProgress {
		return model.PracticeResult{}, fmt.Errorf("session %s is already completed", sessionID)
	}
	if len(userAnswers) != len(session.Questions) {
		return model.PracticeResult{}, fmt.Errorf("expected %d answers, got %d", len(session.Questions), len(userAnswers))
	}

	result := Grade(session, userAnswers)

	if _, err := s.sessions.SaveResult(ctx, result); err != nil {
		return model.PracticeResult{}, fmt.Errorf("persist result: %w", err)
	}
	if err := s.sessions.MarkCompleted(ctx, sessionID); err != nil {
		return model.PracticeResult{}, fmt.Errorf("complete session: %w", err)
	}

	slog.Info("practice session completed",
		"session_id", sessionID,
		"score_percent", result.ScorePercent,
		"weak_topics", len(result.WeakTopics),
	)
	return result, nil
}

// CourseStats recomputes the weak-topic aggregate for a course and user
// from all stored results.
func (s *Service) CourseStats(ctx context.Context, courseID, ownerID string) (model.CourseWeakTopicStats, error) {
	results, err := s.sessions.ListResults(ctx, courseID, ownerID)
	if err != nil {
		return model.CourseWeakTopicStats{}, fmt.Errorf("list results: %w", err)
	}
	return ComputeCourseStats(results), nil
}
