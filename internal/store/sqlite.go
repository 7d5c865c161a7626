package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cvmgrid/internal/model"
)

// ErrNotFound is returned when no artifact matches.
var ErrNotFound = eris.New("artifact not found")

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	base       TEXT NOT NULL UNIQUE,
	kind       TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	property   TEXT NOT NULL DEFAULT '',
	num_x      INTEGER NOT NULL,
	num_y      INTEGER NOT NULL,
	min_value  REAL,
	max_value  REAL,
	mean_value REAL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON artifacts(kind);
CREATE INDEX IF NOT EXISTS idx_artifacts_model ON artifacts(model);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordArtifact(ctx context.Context, a Artifact) (*Artifact, error) {
	a.ID = uuid.New().String()
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, base, kind, model, property, num_x, num_y, min_value, max_value, mean_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(base) DO UPDATE SET
			id = excluded.id,
			kind = excluded.kind,
			model = excluded.model,
			property = excluded.property,
			num_x = excluded.num_x,
			num_y = excluded.num_y,
			min_value = excluded.min_value,
			max_value = excluded.max_value,
			mean_value = excluded.mean_value,
			created_at = excluded.created_at`,
		a.ID, a.Base, a.Kind, a.Model, a.Property, a.NumX, a.NumY,
		nullable(a.Min), nullable(a.Max), nullable(a.Mean), a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: record artifact %s", a.Base)
	}
	return &a, nil
}

const selectArtifact = `SELECT id, base, kind, model, property, num_x, num_y, min_value, max_value, mean_value, created_at FROM artifacts`

func (s *SQLiteStore) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, selectArtifact+` WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get artifact %s", id)
	}
	return a, nil
}

func (s *SQLiteStore) FindArtifact(ctx context.Context, base string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, selectArtifact+` WHERE base = ?`, base)
	a, err := scanArtifact(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find artifact %s", base)
	}
	return a, nil
}

func (s *SQLiteStore) ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]Artifact, error) {
	query := selectArtifact + ` WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	if filter.Model != "" {
		query += ` AND model = ?`
		args = append(args, filter.Model)
	}
	query += ` ORDER BY created_at DESC, base`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list artifacts")
	}
	defer rows.Close() //nolint:errcheck

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list artifacts iterate")
}

func (s *SQLiteStore) DeleteArtifact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete artifact %s", id)
	}
	return checkRowsAffected(res, id)
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanArtifact(row scannable) (*Artifact, error) {
	var a Artifact
	var minV, maxV, meanV sql.NullFloat64

	err := row.Scan(&a.ID, &a.Base, &a.Kind, &a.Model, &a.Property, &a.NumX, &a.NumY,
		&minV, &maxV, &meanV, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan artifact")
	}
	a.Min = optional(minV)
	a.Max = optional(maxV)
	a.Mean = optional(meanV)
	return &a, nil
}

func nullable(o model.Optional) sql.NullFloat64 {
	return sql.NullFloat64{Float64: o.Value, Valid: o.Valid}
}

func optional(n sql.NullFloat64) model.Optional {
	if !n.Valid {
		return model.None()
	}
	return model.Some(n.Float64)
}
