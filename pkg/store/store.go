// Package store persists forms and submissions in SQLite. It implements the
// boundary contracts the runtime consumes: the form store the autosave
// scheduler flushes to, and the submission sink the navigation session
// submits through.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// ErrNotFound is returned when a form or submission id does not exist.
var ErrNotFound = errors.New("store: not found")

const ddl = `
CREATE TABLE IF NOT EXISTS forms (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	definition TEXT NOT NULL,
	published  INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS submissions (
	id           TEXT PRIMARY KEY,
	form_id      TEXT NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
	data         TEXT NOT NULL,
	submitted_at TEXT NOT NULL,
	meta         TEXT
);
CREATE INDEX IF NOT EXISTS idx_submissions_form ON submissions(form_id);
`

// Store wraps the SQLite handle.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the database at path with foreign keys on
// and applies the schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := conn.Exec(ddl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{DB: conn}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.DB.Close() }

// SaveForm upserts a form keyed by id (last write wins) and returns the
// stored value with timestamps applied.
func (s *Store) SaveForm(ctx context.Context, form schema.Form) (schema.Form, error) {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if form.CreatedAt.IsZero() {
		form.CreatedAt = now
	}
	form.UpdatedAt = now

	definition, err := schema.EncodeJSON(form)
	if err != nil {
		return schema.Form{}, err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO forms(id,title,definition,published,created_at,updated_at) VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, definition=excluded.definition, published=excluded.published, updated_at=excluded.updated_at`,
		form.ID, form.Title, string(definition), boolToInt(form.Published), form.CreatedAt.Format(time.RFC3339Nano), form.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return schema.Form{}, fmt.Errorf("store: save form %s: %w", form.ID, err)
	}
	return form, nil
}

// Save satisfies the autosave persister contract.
func (s *Store) Save(ctx context.Context, form schema.Form) error {
	_, err := s.SaveForm(ctx, form)
	return err
}

// LoadForm fetches a form by id.
func (s *Store) LoadForm(ctx context.Context, id string) (schema.Form, error) {
	var definition string
	err := s.DB.QueryRowContext(ctx, `SELECT definition FROM forms WHERE id=?`, id).Scan(&definition)
	if err == sql.ErrNoRows {
		return schema.Form{}, ErrNotFound
	}
	if err != nil {
		return schema.Form{}, fmt.Errorf("store: load form %s: %w", id, err)
	}
	form, err := schema.DecodeJSON([]byte(definition))
	if err != nil {
		return schema.Form{}, fmt.Errorf("store: form %s: %w", id, err)
	}
	return form, nil
}

// ListForms returns every stored form, newest first.
func (s *Store) ListForms(ctx context.Context) ([]schema.Form, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT definition FROM forms ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list forms: %w", err)
	}
	defer rows.Close()
	var out []schema.Form
	for rows.Next() {
		var definition string
		if err := rows.Scan(&definition); err != nil {
			return nil, err
		}
		form, err := schema.DecodeJSON([]byte(definition))
		if err != nil {
			return nil, err
		}
		out = append(out, form)
	}
	return out, rows.Err()
}

// DeleteForm removes a form and, via the foreign key, its submissions.
func (s *Store) DeleteForm(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM forms WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("store: delete form %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Submission is the persisted shape of one completed response.
type Submission struct {
	ID          string            `json:"id"`
	FormID      string            `json:"formId"`
	Data        map[string]any    `json:"data"`
	SubmittedAt time.Time         `json:"submittedAt"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// Submit stores a submission and returns its id, satisfying the navigation
// session's sink contract. Unknown form ids are rejected by the foreign key.
func (s *Store) Submit(ctx context.Context, formID string, data map[string]any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("store: encode submission: %w", err)
	}
	id := uuid.NewString()
	_, err = s.DB.ExecContext(ctx, `INSERT INTO submissions(id,form_id,data,submitted_at,meta) VALUES (?,?,?,?,NULL)`,
		id, formID, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("store: submit to form %s: %w", formID, err)
	}
	return id, nil
}

// ListSubmissions returns a form's submissions, newest first.
func (s *Store) ListSubmissions(ctx context.Context, formID string) ([]Submission, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id,form_id,data,submitted_at,COALESCE(meta,'') FROM submissions WHERE form_id=? ORDER BY submitted_at DESC`, formID)
	if err != nil {
		return nil, fmt.Errorf("store: list submissions: %w", err)
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		var sub Submission
		var data, submittedAt, meta string
		if err := rows.Scan(&sub.ID, &sub.FormID, &data, &submittedAt, &meta); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &sub.Data); err != nil {
			return nil, fmt.Errorf("store: submission %s: %w", sub.ID, err)
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &sub.Meta); err != nil {
				return nil, fmt.Errorf("store: submission %s meta: %w", sub.ID, err)
			}
		}
		ts, err := time.Parse(time.RFC3339Nano, submittedAt)
		if err != nil {
			return nil, fmt.Errorf("store: submission %s timestamp: %w", sub.ID, err)
		}
		sub.SubmittedAt = ts
		out = append(out, sub)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
