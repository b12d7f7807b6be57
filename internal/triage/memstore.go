package triage

import (
	"sort"
	"sync"
	"time"

	"flipmail/internal/database"
	"flipmail/internal/email"
)

// MemStore is an in-memory Repository with the same semantics as the
// sqlite store, including the (user, message) uniqueness guarantee.
// Used by tests and by the server's ephemeral mode.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*email.UnparsedEmail
	byKey  map[string]int64
}

// NewMemStore creates an empty in-memory repository
func NewMemStore() *MemStore {
	return &MemStore{
		nextID: 1,
		byID:   make(map[int64]*email.UnparsedEmail),
		byKey:  make(map[string]int64),
	}
}

func key(userID, messageID string) string {
	return userID + "\x00" + messageID
}

// Create inserts a pending record, enforcing (user, message) uniqueness
func (m *MemStore) Create(rec *email.UnparsedEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(rec.UserID, rec.MessageID)
	if _, exists := m.byKey[k]; exists {
		return database.ErrDuplicate
	}

	now := time.Now()
	rec.ID = m.nextID
	m.nextID++
	rec.Status = email.StatusPending
	rec.CreatedAt = now
	rec.UpdatedAt = now

	stored := *rec
	m.byID[rec.ID] = &stored
	m.byKey[k] = rec.ID

	return nil
}

// FindByID retrieves a record by id
func (m *MemStore) FindByID(id int64) (*email.UnparsedEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// FindByMessageID retrieves a user's record for a message
func (m *MemStore) FindByMessageID(userID, messageID string) (*email.UnparsedEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byKey[key(userID, messageID)]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

// FindPendingByUser retrieves up to limit pending records, oldest first
func (m *MemStore) FindPendingByUser(userID string, limit int) ([]email.UnparsedEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []email.UnparsedEmail
	for _, rec := range m.byID {
		if rec.UserID == userID && rec.Status == email.StatusPending {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// TransitionStatus performs a conditional status update
func (m *MemStore) TransitionStatus(id int64, from, to, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	if rec.Status != from {
		return database.ErrConflict
	}

	now := time.Now()
	rec.Status = to
	rec.ErrorMessage = errorMessage
	rec.UpdatedAt = now
	if to == email.StatusFailed {
		rec.EscalatedAt = &now
	}

	return nil
}

// MarkProcessed completes a processing record
func (m *MemStore) MarkProcessed(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	if rec.Status != email.StatusProcessing {
		return database.ErrConflict
	}

	now := time.Now()
	rec.Status = email.StatusProcessed
	rec.ErrorMessage = ""
	rec.ProcessedAt = &now
	rec.EscalatedAt = &now
	rec.UpdatedAt = now

	return nil
}

// Delete removes a record
func (m *MemStore) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	delete(m.byKey, key(rec.UserID, rec.MessageID))
	delete(m.byID, id)

	return nil
}
