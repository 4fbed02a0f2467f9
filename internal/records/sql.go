package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/hrvbot/core/logger"
)

// SQLStore keeps records in a relational database reached through sqlx.
// Queries are written with '?' placeholders and rebound per driver.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open database. The schema is owned by the migrations.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) CreateProfile(ctx context.Context, name string) (int64, error) {
	return s.insert(ctx, Users, name)
}

func (s *SQLStore) CreateHrvPhoto(ctx context.Context, name string) (int64, error) {
	return s.insert(ctx, Hrv, name)
}

func (s *SQLStore) insert(ctx context.Context, table Table, name string) (int64, error) {
	// table is one of the package constants, never user input.
	q := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (name) VALUES (?) RETURNING id", table))
	var id int64
	if err := s.db.QueryRowxContext(ctx, q, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("records: create %s: %w", table, err)
	}
	logger.SVCRecords.Debug("record created",
		slog.String("event", "record.create"),
		slog.String("table", string(table)),
		slog.String("name", name),
		slog.Int64("id", id),
	)
	return id, nil
}

func (s *SQLStore) SetField(ctx context.Context, table Table, field Field, value, name string) error {
	if err := checkField(table, field); err != nil {
		return err
	}
	// Updating by MAX(id) in one statement keeps earlier rows for the name intact.
	q := s.db.Rebind(fmt.Sprintf(
		"UPDATE %[1]s SET %[2]s = ? WHERE id = (SELECT MAX(id) FROM %[1]s WHERE name = ?)",
		table, field,
	))
	res, err := s.db.ExecContext(ctx, q, value, name)
	if err != nil {
		return fmt.Errorf("records: set %s.%s: %w", table, field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("records: set %s.%s: %w", table, field, err)
	}
	if n == 0 {
		return fmt.Errorf("records: set %s.%s for %q: %w", table, field, name, ErrNotFound)
	}
	logger.SVCRecords.Debug("record updated",
		slog.String("event", "record.set"),
		slog.String("table", string(table)),
		slog.String("field", string(field)),
		slog.String("name", name),
	)
	return nil
}

func (s *SQLStore) LatestProfile(ctx context.Context, name string) (ProfileRecord, error) {
	var rec ProfileRecord
	q := s.db.Rebind("SELECT id, name, gender, photo, location, bio FROM users WHERE name = ? ORDER BY id DESC LIMIT 1")
	if err := s.db.GetContext(ctx, &rec, q, name); err != nil {
		return ProfileRecord{}, notFound(err, Users, name)
	}
	return rec, nil
}

func (s *SQLStore) LatestHrvPhoto(ctx context.Context, name string) (HrvPhotoRecord, error) {
	var rec HrvPhotoRecord
	q := s.db.Rebind("SELECT id, name, summary, graphs, details FROM hrv WHERE name = ? ORDER BY id DESC LIMIT 1")
	if err := s.db.GetContext(ctx, &rec, q, name); err != nil {
		return HrvPhotoRecord{}, notFound(err, Hrv, name)
	}
	return rec, nil
}

func notFound(err error, table Table, name string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("records: latest %s for %q: %w", table, name, ErrNotFound)
	}
	return fmt.Errorf("records: latest %s: %w", table, err)
}
