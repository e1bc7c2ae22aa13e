// internal/project/store.go
package project

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "uigen/internal/errors"
	"uigen/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const maxNameLength = 200

type Store struct {
	store *storage.BadgerStore
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		store: storage.NewBadgerStore(db, "project"),
	}
}

func validate(p *Project) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return apperrors.ValidationError("name is required", nil)
	}
	if len(name) > maxNameLength {
		return apperrors.ValidationError(fmt.Sprintf("name must be at most %d characters", maxNameLength), nil)
	}
	return nil
}

// Create assigns an ID and timestamps when missing and stores p.
func (s *Store) Create(p *Project) error {
	if err := validate(p); err != nil {
		return err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	// Set timestamps
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	return s.store.Create(p)
}

func (s *Store) Get(id string) (*Project, error) {
	var p Project
	if err := s.store.Get(id, &p); err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return &p, nil
}

func (s *Store) Update(p *Project) error {
	if err := validate(p); err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	return s.store.Update(p)
}

func (s *Store) Delete(id string) error {
	return s.store.Delete(id)
}

// List returns every project, newest first.
func (s *Store) List() ([]*Project, error) {
	var projects []*Project
	if err := s.store.List(&projects); err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}
