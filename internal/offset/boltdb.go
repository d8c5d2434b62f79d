package offset

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
)

const (
	bucketName = "checkpoints"
)

// BoltDBStore implements CheckpointStore using BoltDB
type BoltDBStore struct {
	db *bbolt.DB
}

// NewBoltDBStore creates a new BoltDB checkpoint store
func NewBoltDBStore(dbPath string) (*BoltDBStore, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		// a lock held by a killed process can't be broken from here
		return nil, fmt.Errorf("failed to open boltdb (file may be locked by another process): %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Info().
		Str("db_path", dbPath).
		Msg("BoltDB checkpoint store initialized")

	return &BoltDBStore{db: db}, nil
}

// Get retrieves the checkpoint of a log class
func (s *BoltDBStore) Get(ctx context.Context, logClass string) (domain.Cursor, error) {
	var val []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		if v := b.Get([]byte(makeKey(Scope, logClass))); v != nil {
			// v is only valid inside the transaction
			val = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	if val == nil {
		return nil, nil
	}
	return decode(val)
}

// Set stores the checkpoint of a log class
func (s *BoltDBStore) Set(ctx context.Context, logClass string, c domain.Cursor) error {
	val, err := encode(c)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(makeKey(Scope, logClass)), val)
	})
	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}

	log.Debug().
		Str("log_class", logClass).
		Msg("Checkpoint updated")

	return nil
}

// Delete removes the checkpoint of a log class
func (s *BoltDBStore) Delete(ctx context.Context, logClass string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(makeKey(Scope, logClass)))
	})
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// List returns all stored checkpoints. Undecodable values are skipped.
func (s *BoltDBStore) List(ctx context.Context) (map[string]domain.Cursor, error) {
	result := make(map[string]domain.Cursor)
	prefix := Scope + ":"

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			key := string(k)
			if !strings.HasPrefix(key, prefix) {
				return nil
			}
			c, err := decode(v)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Skipping corrupt checkpoint")
				return nil
			}
			result[strings.TrimPrefix(key, prefix)] = c
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	return result, nil
}

// Close closes the BoltDB database
func (s *BoltDBStore) Close() error {
	log.Info().Msg("Closing BoltDB checkpoint store")
	return s.db.Close()
}
