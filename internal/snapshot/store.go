package snapshot

import (
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("snapshot not found")

// Store keeps encoded record snapshots on disk for disconnected
// operation: one bolt bucket per class, keyed by object id. The store
// deals in opaque blobs; encoding belongs to the caller.
type Store struct {
	bdb *bbolt.DB
}

func Open(path string) (*Store, error) {
	bdb, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open snapshot store at %s", path)
	}

	return &Store{bdb: bdb}, nil
}

func (s *Store) Close() error {
	return s.bdb.Close()
}

func (s *Store) Put(className, id string, blob []byte) error {
	err := s.bdb.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(className))
		if err != nil {
			return err
		}

		return b.Put([]byte(id), blob)
	})

	if err != nil {
		return errors.Wrapf(err, "could not store snapshot %s/%s", className, id)
	}

	return nil
}

func (s *Store) Get(className, id string) ([]byte, error) {
	var blob []byte
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(className))
		if b == nil {
			return errors.Wrapf(ErrNotFound, "%s/%s", className, id)
		}

		v := b.Get([]byte(id))
		if v == nil {
			return errors.Wrapf(ErrNotFound, "%s/%s", className, id)
		}

		blob = make([]byte, len(v))
		copy(blob, v)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return blob, nil
}

func (s *Store) Delete(className, id string) error {
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(className))
		if b == nil {
			return nil
		}

		return b.Delete([]byte(id))
	})
}

// Keys lists the stored object ids of one class.
func (s *Store) Keys(className string) ([]string, error) {
	var keys []string
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(className))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})

	if err != nil {
		return nil, errors.Wrapf(err, "could not list snapshots of %s", className)
	}

	return keys, nil
}
