package directory

import (
	"context"
	"slices"
	"sync"
)

// MemoryDirectory keeps subjects in process. It backs local runs (seeded
// with a bootstrap admin) and tests.
type MemoryDirectory struct {
	mu       sync.RWMutex
	subjects map[string]Subject
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{subjects: make(map[string]Subject)}
}

// Put hashes secret and stores the subject, replacing any previous record.
func (d *MemoryDirectory) Put(id, role, secret string, permissions ...string) error {
	if id == "" || role == "" {
		return ErrInvalidArgument
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.subjects[id] = Subject{
		ID:           id,
		Role:         role,
		Permissions:  slices.Clone(permissions),
		PasswordHash: hash,
		Active:       true,
	}
	return nil
}

// SetActive enables or disables login for id.
func (d *MemoryDirectory) SetActive(id string, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.subjects[id]; ok {
		s.Active = active
		d.subjects[id] = s
	}
}

func (d *MemoryDirectory) Authenticate(ctx context.Context, subjectID, secret string) (Subject, error) {
	d.mu.RLock()
	s, ok := d.subjects[subjectID]
	d.mu.RUnlock()
	if ok {
		s.Permissions = slices.Clone(s.Permissions)
	}
	return verify(s, ok, secret)
}
