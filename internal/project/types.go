// internal/project/types.go
package project

import (
	"strings"
	"time"
)

// Project is a named file tree with a history of saved revisions.
type Project struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Revision  string     `json:"revision"` // snapshot hash of the current tree
	History   []Revision `json:"history"`  // oldest first, current last
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Revision is one saved state of a project's file system.
type Revision struct {
	Hash      string    `json:"hash"`
	Files     int       `json:"files"`
	CreatedAt time.Time `json:"created_at"`
	Note      string    `json:"note,omitempty"`
}

func (p *Project) GetID() string {
	return p.ID
}

// AddRevision makes rev current and trims history to at most limit entries
// (no limit when limit <= 0). It returns the revisions trimmed away.
func (p *Project) AddRevision(rev Revision, limit int) []Revision {
	p.History = append(p.History, rev)
	p.Revision = rev.Hash
	p.UpdatedAt = rev.CreatedAt

	if limit <= 0 || len(p.History) <= limit {
		return nil
	}
	cut := len(p.History) - limit
	pruned := append([]Revision(nil), p.History[:cut]...)
	p.History = append([]Revision(nil), p.History[cut:]...)
	return pruned
}

// FindRevision looks up a revision by full hash or unique hash prefix.
func (p *Project) FindRevision(ref string) (Revision, bool) {
	if ref == "" {
		return Revision{}, false
	}
	var (
		found Revision
		n     int
	)
	for _, rev := range p.History {
		if rev.Hash == ref {
			return rev, true
		}
		if strings.HasPrefix(rev.Hash, ref) && rev.Hash != found.Hash {
			found = rev
			n++
		}
	}
	return found, n == 1
}
