package options

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var bucketOptions = []byte("options")

// BoltStore keeps options in a BoltDB bucket
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates an option store using the provided BoltDB instance
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	// Create bucket if not exists
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketOptions)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create options bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	var ok bool

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketOptions).Get([]byte(name))
		if v != nil {
			value, ok = string(v), true
		}
		return nil
	})

	return value, ok, err
}

func (s *BoltStore) Add(ctx context.Context, name, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketOptions)
		if bucket.Get([]byte(name)) != nil {
			return nil
		}
		return bucket.Put([]byte(name), []byte(value))
	})
}

func (s *BoltStore) Update(ctx context.Context, name, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOptions).Put([]byte(name), []byte(value))
	})
}

func (s *BoltStore) Delete(ctx context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOptions).Delete([]byte(name))
	})
}

func (s *BoltStore) All(ctx context.Context) (map[string]string, error) {
	all := make(map[string]string)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOptions).ForEach(func(k, v []byte) error {
			all[string(k)] = string(v)
			return nil
		})
	})

	return all, err
}
