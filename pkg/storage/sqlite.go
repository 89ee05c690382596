package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	position   INTEGER PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	local_id   TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL,
	completed  INTEGER NOT NULL DEFAULT 0,
	priority   TEXT NOT NULL DEFAULT 'medium',
	created_at DATETIME
);
`

// SQLite persists the snapshot in a SQLite database, one row per task and
// ordered by position.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath. The caller is
// responsible for calling Close.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", dbPath)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Load(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, local_id, text, completed, priority, created_at
		FROM tasks
		ORDER BY position ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var (
			id, localID, text, priority string
			completed                   bool
			createdAt                   sql.NullTime
		)
		if err := rows.Scan(&id, &localID, &text, &completed, &priority, &createdAt); err != nil {
			return nil, errors.WithStack(err)
		}

		t := model.Task{
			Identity:  model.ParseIdentity(id, localID),
			Text:      text,
			Completed: completed,
			Priority:  model.Priority(priority),
		}
		if createdAt.Valid {
			t.CreatedAt = createdAt.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, errors.WithStack(rows.Err())
}

// Save replaces the stored snapshot inside a single transaction.
func (s *SQLite) Save(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return errors.Wrap(err, "clear tasks")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (position, id, local_id, text, completed, priority, created_at)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for i, t := range tasks {
		localID := ""
		if t.Identity.Linked() {
			localID = t.Identity.Local
		}
		_, err := stmt.ExecContext(ctx,
			i, string(t.ID()), localID, t.Text, t.Completed, string(t.Priority), nullTime(t.CreatedAt),
		)
		if err != nil {
			return errors.Wrapf(err, "insert task %s", t.ID())
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
