package parse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var errRecordMissing = errors.New("record does not exist")

// memoryRepository is the in-memory Repository the tests fetch from and
// persist to. Records are stored and served as snapshot copies so the
// repository never shares mutable state with the records under test.
type memoryRepository struct {
	mu           sync.Mutex
	blobs        map[string][]byte
	fetchCalls   int
	persistCalls int
	deleteCalls  int
	nextID       int

	failFetch   error
	failPersist error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{blobs: make(map[string][]byte)}
}

func (m *memoryRepository) seed(r *Record) error {
	blob, err := EncodeSnapshot(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.blobs[r.ClassName()+"$"+r.ID()] = blob
	m.mu.Unlock()
	return nil
}

func (m *memoryRepository) FetchFull(ctx context.Context, className, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchCalls++
	if m.failFetch != nil {
		return nil, m.failFetch
	}

	blob, ok := m.blobs[className+"$"+id]
	if !ok {
		return nil, errors.Wrapf(errRecordMissing, "%s %s", className, id)
	}

	return DecodeSnapshot(blob)
}

func (m *memoryRepository) Persist(ctx context.Context, r *Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.persistCalls++
	if m.failPersist != nil {
		return nil, m.failPersist
	}

	blob, err := EncodeSnapshot(r)
	if err != nil {
		return nil, err
	}

	server, err := DecodeSnapshot(blob)
	if err != nil {
		return nil, err
	}

	if server.id == "" {
		m.nextID++
		server.id = fmt.Sprintf("obj-%d", m.nextID)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if server.createdAt == nil {
		server.createdAt = &now
	}
	server.updatedAt = &now
	server.fetchedKeys = nil

	serverBlob, err := EncodeSnapshot(server)
	if err != nil {
		return nil, err
	}
	m.blobs[server.className+"$"+server.id] = serverBlob

	return server, nil
}

func (m *memoryRepository) Delete(ctx context.Context, className, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteCalls++
	delete(m.blobs, className+"$"+id)
	return nil
}

func (m *memoryRepository) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

func seedFullRecord(repo *memoryRepository, className, id string, fields Fields) *Record {
	r := NewRecord(className)
	r.id = id
	now := time.Now().UTC().Truncate(time.Millisecond)
	r.createdAt = &now
	r.updatedAt = &now
	for name, v := range fields {
		r.storeField(name, v)
	}

	if err := repo.seed(r); err != nil {
		panic(err)
	}

	return r
}
