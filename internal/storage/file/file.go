// Package file implements the storage gateway as a single JSON document on
// disk, the default backend for small single-operator deployments.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"dues/internal/core"
	"dues/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// document is the on-disk shape: the whole ledger in one file.
type document struct {
	Settings core.Settings  `json:"settings"`
	Members  []core.Member  `json:"members"`
	Expenses []core.Expense `json:"expenses"`
}

// Store keeps the document in memory and rewrites the file on every
// mutation. A mutex serializes mutations so concurrent toggles on the same
// member cannot lose updates.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Open loads the document at path, seeding defaults on first run.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.doc = document{Settings: core.DefaultSettings(time.Now().Year())}
		if err := s.persist(); err != nil {
			return nil, err
		}
		slog.Info("Seeded new ledger document", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read ledger document: %w", err)
	default:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("decode ledger document: %w", err)
		}
		if len(s.doc.Settings.FeeHistory) == 0 && s.doc.Settings.MonthlyFee.Cents == 0 {
			s.doc.Settings = core.DefaultSettings(time.Now().Year())
		}
	}
	return s, nil
}

// persist writes the document atomically: temp file in the same directory,
// then rename.
func (s *Store) persist() error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger document: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write ledger document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace ledger document: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Settings(_ context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Settings.Clone(), nil
}

func (s *Store) UpdateSettings(_ context.Context, settings core.Settings) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Settings = settings.Clone()
	if err := s.persist(); err != nil {
		return core.Settings{}, err
	}
	return s.doc.Settings.Clone(), nil
}

func (s *Store) Members(_ context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Member, len(s.doc.Members))
	for i, m := range s.doc.Members {
		out[i] = m.Clone()
	}
	return out, nil
}

func (s *Store) Member(_ context.Context, id string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.doc.Members {
		if m.ID == id {
			return m.Clone(), nil
		}
	}
	return core.Member{}, storage.ErrNotFound
}

func (s *Store) CreateMember(_ context.Context, m core.Member) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Payments == nil {
		m.Payments = map[core.YearMonth]core.Payment{}
	}
	s.doc.Members = append(s.doc.Members, m.Clone())
	if err := s.persist(); err != nil {
		return core.Member{}, err
	}
	return m, nil
}

func (s *Store) UpdateMember(_ context.Context, m core.Member) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.Members {
		if existing.ID == m.ID {
			s.doc.Members[i] = m.Clone()
			if err := s.persist(); err != nil {
				return core.Member{}, err
			}
			return m, nil
		}
	}
	return core.Member{}, storage.ErrNotFound
}

func (s *Store) DeleteMember(_ context.Context, id string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.doc.Members {
		if m.ID == id {
			s.doc.Members = append(s.doc.Members[:i], s.doc.Members[i+1:]...)
			if err := s.persist(); err != nil {
				return core.Member{}, err
			}
			return m, nil
		}
	}
	return core.Member{}, storage.ErrNotFound
}

func (s *Store) Expenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.doc.Expenses...), nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	s.doc.Expenses = append(s.doc.Expenses, e)
	if err := s.persist(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.doc.Expenses {
		if e.ID == id {
			s.doc.Expenses = append(s.doc.Expenses[:i], s.doc.Expenses[i+1:]...)
			if err := s.persist(); err != nil {
				return core.Expense{}, err
			}
			return e, nil
		}
	}
	return core.Expense{}, storage.ErrNotFound
}
