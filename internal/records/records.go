// Package records persists the rows collected by the profile and HRV dialogs.
//
// Rows are append-only: each dialog entry inserts a new row keyed by the
// user's name, and field updates always target the most recent row for that
// name. Earlier attempts are kept untouched.
package records

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no row exists for the requested name.
	ErrNotFound = errors.New("records: not found")
	// ErrUnknownField is returned when a field does not belong to the table.
	ErrUnknownField = errors.New("records: unknown field")
)

// Table names a persisted table.
type Table string

// Field names a writable column of a table.
type Field string

const (
	Users Table = "users"
	Hrv   Table = "hrv"
)

const (
	Gender   Field = "gender"
	Photo    Field = "photo"
	Location Field = "location"
	Bio      Field = "bio"

	Summary Field = "summary"
	Graphs  Field = "graphs"
	Details Field = "details"
)

// columns is the whitelist of writable fields per table, in dialog order.
var columns = map[Table][]Field{
	Users: {Gender, Photo, Location, Bio},
	Hrv:   {Summary, Graphs, Details},
}

// Fields returns the writable fields of t in dialog order.
func (t Table) Fields() []Field {
	return append([]Field(nil), columns[t]...)
}

// Allows reports whether f is a writable column of t.
func (t Table) Allows(f Field) bool {
	for _, c := range columns[t] {
		if c == f {
			return true
		}
	}
	return false
}

func checkField(t Table, f Field) error {
	if _, ok := columns[t]; !ok {
		return fmt.Errorf("records: unknown table %q", t)
	}
	if !t.Allows(f) {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, t, f)
	}
	return nil
}

// ProfileRecord is one row of the users table. Unset fields are nil.
type ProfileRecord struct {
	ID       int64   `db:"id"`
	Name     string  `db:"name"`
	Gender   *string `db:"gender"`
	Photo    *string `db:"photo"`
	Location *string `db:"location"`
	Bio      *string `db:"bio"`
}

// Value returns the stored value of f and whether it is set.
func (r ProfileRecord) Value(f Field) (string, bool) {
	switch f {
	case Gender:
		return deref(r.Gender)
	case Photo:
		return deref(r.Photo)
	case Location:
		return deref(r.Location)
	case Bio:
		return deref(r.Bio)
	}
	return "", false
}

// HrvPhotoRecord is one row of the hrv table. Unset fields are nil.
type HrvPhotoRecord struct {
	ID      int64   `db:"id"`
	Name    string  `db:"name"`
	Summary *string `db:"summary"`
	Graphs  *string `db:"graphs"`
	Details *string `db:"details"`
}

// Value returns the stored value of f and whether it is set.
func (r HrvPhotoRecord) Value(f Field) (string, bool) {
	switch f {
	case Summary:
		return deref(r.Summary)
	case Graphs:
		return deref(r.Graphs)
	case Details:
		return deref(r.Details)
	}
	return "", false
}

func deref(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// Store is the record persistence boundary used by the dialogs.
type Store interface {
	// CreateProfile appends a users row with only name set and returns its id.
	CreateProfile(ctx context.Context, name string) (int64, error)
	// CreateHrvPhoto appends an hrv row with only name set and returns its id.
	CreateHrvPhoto(ctx context.Context, name string) (int64, error)
	// SetField writes value into field of the latest row of table for name.
	SetField(ctx context.Context, table Table, field Field, value, name string) error
	LatestProfile(ctx context.Context, name string) (ProfileRecord, error)
	LatestHrvPhoto(ctx context.Context, name string) (HrvPhotoRecord, error)
}
