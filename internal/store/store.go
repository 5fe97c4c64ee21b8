package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is the local persistent key/value storage shared by the dashboard
// (session token, saved table configs) and the backend (audit log, admin users).
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens or creates the bbolt file at path, creating parent directories.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

// Bucket returns a handle to a named bucket. The bucket is created lazily on
// the first write.
func (s *Store) Bucket(name string) *Bucket {
	return &Bucket{db: s.db, name: []byte(name)}
}

type Bucket struct {
	db   *bolt.DB
	name []byte
}

// Load returns a copy of the value stored under key and whether it exists.
func (b *Bucket) Load(key string) ([]byte, bool, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.name)
		if bk == nil {
			return nil
		}
		if v := bk.Get([]byte(key)); v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (b *Bucket) Save(key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk, err := tx.CreateBucketIfNotExists(b.name)
		if err != nil {
			return err
		}
		return bk.Put([]byte(key), value)
	})
}

func (b *Bucket) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.name)
		if bk == nil {
			return nil
		}
		return bk.Delete([]byte(key))
	})
}

// Each calls fn for every key in byte order. Values are only valid for the
// duration of the call.
func (b *Bucket) Each(fn func(key string, value []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.name)
		if bk == nil {
			return nil
		}
		return bk.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

// NextSequence returns a monotonically increasing id for the bucket.
func (b *Bucket) NextSequence() (uint64, error) {
	var seq uint64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk, err := tx.CreateBucketIfNotExists(b.name)
		if err != nil {
			return err
		}
		seq, err = bk.NextSequence()
		return err
	})
	return seq, err
}
