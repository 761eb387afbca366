package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"quizforge/internal/model"

	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed document, session, and result store. It
// implements practice.DocumentStore and practice.SessionStore.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at dbPath. Use ":memory:" for
// tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		name TEXT NOT NULL,
		mime_type TEXT NOT NULL DEFAULT '',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		url TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_course ON documents(course_id);

	CREATE TABLE IF NOT EXISTS practice_sessions (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		course_name TEXT NOT NULL,
		kind TEXT NOT NULL,
		question_count INTEGER NOT NULL,
		questions TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'in_progress',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_course_owner ON practice_sessions(course_id, owner_id);

	CREATE TABLE IF NOT EXISTS practice_results (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		course_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		score_percent REAL NOT NULL,
		total_questions INTEGER NOT NULL,
		correct_count INTEGER NOT NULL,
		incorrect_count INTEGER NOT NULL,
		answers TEXT NOT NULL,
		weak_topics TEXT NOT NULL,
		completed_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES practice_sessions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_results_course_owner ON practice_results(course_id, owner_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// PutDocument stores a document's metadata for a course.
func (s *Store) PutDocument(ctx context.Context, courseID string, doc model.CourseDocument) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, course_id, name, mime_type, size_bytes, url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, courseID, doc.Name, doc.MimeType, doc.SizeBytes, doc.URL, time.Now(),
	)
	return err
}

// GetDocument returns one document by ID.
func (s *Store) GetDocument(ctx context.Context, documentID string) (model.CourseDocument, error) {
	var d model.CourseDocument
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, mime_type, size_bytes, url FROM documents WHERE id = ?`, documentID,
	).Scan(&d.ID, &d.Name, &d.MimeType, &d.SizeBytes, &d.URL)
	return d, err
}

// ListByCourse returns all documents of a course in upload order.
func (s *Store) ListByCourse(ctx context.Context, courseID string) ([]model.CourseDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, mime_type, size_bytes, url FROM documents WHERE course_id = ? ORDER BY created_at, id`,
		courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.CourseDocument
	for rows.Next() {
		var d model.CourseDocument
		if err := rows.Scan(&d.ID, &d.Name, &d.MimeType, &d.SizeBytes, &d.URL); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document's metadata.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID)
	return err
}

// CreateSession persists a practice session with its question set.
func (s *Store) CreateSession(ctx context.Context, session model.PracticeSession) (string, error) {
	questions, err := json.Marshal(session.Questions)
	if err != nil {
		return "", fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO practice_sessions (id, course_id, course_name, kind, question_count, questions, owner_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.CourseID, session.CourseName, session.Kind,
		session.QuestionCount, string(questions), session.OwnerID, session.Status, session.CreatedAt,
	)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// GetSession returns a session with its questions.
func (s *Store) GetSession(ctx context.Context, sessionID string) (model.PracticeSession, error) {
	var sess model.PracticeSession
	var questions string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, course_id, course_name, kind, question_count, questions, owner_id, status, created_at
		 FROM practice_sessions WHERE id = ?`, sessionID,
	).Scan(&sess.ID, &sess.CourseID, &sess.CourseName, &sess.Kind, &sess.QuestionCount,
		&questions, &sess.OwnerID, &sess.Status, &sess.CreatedAt)
	if err != nil {
		return sess, err
	}
	if err := json.Unmarshal([]byte(questions), &sess.Questions); err != nil {
		return sess, fmt.Errorf("unmarshal questions: %w", err)
	}
	return sess, nil
}

// MarkCompleted transitions a session to completed.
func (s *Store) MarkCompleted(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE practice_sessions SET status = ? WHERE id = ?`,
		model.StatusCompleted, sessionID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaveResult persists a practice result. The session_id unique
// constraint enforces at most one result per session.
func (s *Store) SaveResult(ctx context.Context, result model.PracticeResult) (string, error) {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	weakTopics, err := json.Marshal(result.WeakTopics)
	if err != nil {
		return "", fmt.Errorf("marshal weak topics: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO practice_results
		 (id, session_id, course_id, owner_id, score_percent, total_questions, correct_count, incorrect_count, answers, weak_topics, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.SessionID, result.CourseID, result.OwnerID,
		result.ScorePercent, result.TotalQuestions, result.CorrectCount, result.IncorrectCount,
		string(answers), string(weakTopics), result.CompletedAt,
	)
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

// ListResults returns all results for a course and owner, oldest first.
func (s *Store) ListResults(ctx context.Context, courseID, ownerID string) ([]model.PracticeResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, course_id, owner_id, score_percent, total_questions, correct_count, incorrect_count, answers, weak_topics, completed_at
		 FROM practice_results WHERE course_id = ? AND owner_id = ? ORDER BY completed_at, id`,
		courseID, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.PracticeResult
	for rows.Next() {
		var r model.PracticeResult
		var answers, weakTopics string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.CourseID, &r.OwnerID, &r.ScorePercent,
			&r.TotalQuestions, &r.CorrectCount, &r.IncorrectCount, &answers, &weakTopics, &r.CompletedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		if err := json.Unmarshal([]byte(weakTopics), &r.WeakTopics); err != nil {
			return nil, fmt.Errorf("unmarshal weak topics: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
