package records

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a process-local Store. Reads return copies.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	users  []ProfileRecord
	hrv    []HrvPhotoRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) CreateProfile(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.users = append(m.users, ProfileRecord{ID: m.nextID, Name: name})
	return m.nextID, nil
}

func (m *Memory) CreateHrvPhoto(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.hrv = append(m.hrv, HrvPhotoRecord{ID: m.nextID, Name: name})
	return m.nextID, nil
}

func (m *Memory) SetField(_ context.Context, table Table, field Field, value, name string) error {
	if err := checkField(table, field); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v := value
	switch table {
	case Users:
		for i := len(m.users) - 1; i >= 0; i-- {
			if m.users[i].Name != name {
				continue
			}
			r := &m.users[i]
			switch field {
			case Gender:
				r.Gender = &v
			case Photo:
				r.Photo = &v
			case Location:
				r.Location = &v
			case Bio:
				r.Bio = &v
			}
			return nil
		}
	case Hrv:
		for i := len(m.hrv) - 1; i >= 0; i-- {
			if m.hrv[i].Name != name {
				continue
			}
			r := &m.hrv[i]
			switch field {
			case Summary:
				r.Summary = &v
			case Graphs:
				r.Graphs = &v
			case Details:
				r.Details = &v
			}
			return nil
		}
	}
	return fmt.Errorf("records: set %s.%s for %q: %w", table, field, name, ErrNotFound)
}

func (m *Memory) LatestProfile(_ context.Context, name string) (ProfileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.users) - 1; i >= 0; i-- {
		if m.users[i].Name == name {
			r := m.users[i]
			r.Gender, r.Photo, r.Location, r.Bio = clone(r.Gender), clone(r.Photo), clone(r.Location), clone(r.Bio)
			return r, nil
		}
	}
	return ProfileRecord{}, fmt.Errorf("records: latest %s for %q: %w", Users, name, ErrNotFound)
}

func (m *Memory) LatestHrvPhoto(_ context.Context, name string) (HrvPhotoRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.hrv) - 1; i >= 0; i-- {
		if m.hrv[i].Name == name {
			r := m.hrv[i]
			r.Summary, r.Graphs, r.Details = clone(r.Summary), clone(r.Graphs), clone(r.Details)
			return r, nil
		}
	}
	return HrvPhotoRecord{}, fmt.Errorf("records: latest %s for %q: %w", Hrv, name, ErrNotFound)
}

// Rows returns the number of rows in table, including earlier attempts.
func (m *Memory) Rows(table Table) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch table {
	case Users:
		return len(m.users)
	case Hrv:
		return len(m.hrv)
	}
	return 0
}

func clone(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
