// Package draftstore persists in-progress campaign drafts between CLI runs.
package draftstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/leadflow/internal/campaign"
)

var (
	bucketDrafts = []byte("drafts")
	bucketMeta   = []byte("meta")

	keyCurrent = []byte("current")
)

var (
	// ErrNotFound is returned when no draft matches
	ErrNotFound = errors.New("draft not found")
	// ErrNoCurrent is returned when no draft is selected
	ErrNoCurrent = errors.New("no current draft")
	// ErrAmbiguous is returned when an id prefix matches several drafts
	ErrAmbiguous = errors.New("draft id prefix is ambiguous")
)

// Record is a stored draft
type Record struct {
	ID        string         `json:"id"`
	Draft     campaign.Draft `json:"draft"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store is a bbolt-backed draft store
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketDrafts, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new draft and makes it current
func (s *Store) Create(ctx context.Context, d campaign.Draft) (*Record, error) {
	now := time.Now().UTC()
	rec := &Record{
		ID:        uuid.New().String(),
		Draft:     d,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketDrafts).Put([]byte(rec.ID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyCurrent, []byte(rec.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store draft: %w", err)
	}
	return rec, nil
}

// Get returns the draft with the given id
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		rec, err = getRecord(tx, []byte(id))
		return err
	})
	return rec, err
}

func getRecord(tx *bolt.Tx, id []byte) (*Record, error) {
	data := tx.Bucket(bucketDrafts).Get(id)
	if data == nil {
		return nil, ErrNotFound
	}
	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft %s: %w", id, err)
	}
	return rec, nil
}

// Find resolves a full id or a unique id prefix
func (s *Store) Find(ctx context.Context, prefix string) (*Record, error) {
	if prefix == "" {
		return nil, ErrNotFound
	}

	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketDrafts).Cursor()
		p := []byte(prefix)

		var match []byte
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			if match != nil {
				return fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
			}
			match = append([]byte(nil), k...)
		}
		if match == nil {
			return ErrNotFound
		}

		var err error
		rec, err = getRecord(tx, match)
		return err
	})
	return rec, err
}

// Save overwrites an existing draft
func (s *Store) Save(ctx context.Context, rec *Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketDrafts)
		if bucket.Get([]byte(rec.ID)) == nil {
			return ErrNotFound
		}

		rec.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal draft: %w", err)
		}
		return bucket.Put([]byte(rec.ID), data)
	})
}

// Delete removes a draft. The current selection is cleared if it pointed at it.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketDrafts)
		if bucket.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return err
		}

		meta := tx.Bucket(bucketMeta)
		if bytes.Equal(meta.Get(keyCurrent), []byte(id)) {
			return meta.Delete(keyCurrent)
		}
		return nil
	})
}

// List returns all drafts, most recently updated first
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	var records []*Record

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDrafts).ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

// SetCurrent selects the draft used by commands that take no id
func (s *Store) SetCurrent(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketDrafts).Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return tx.Bucket(bucketMeta).Put(keyCurrent, []byte(id))
	})
}

// Current returns the selected draft
func (s *Store) Current(ctx context.Context) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketMeta).Get(keyCurrent)
		if id == nil {
			return ErrNoCurrent
		}
		var err error
		rec, err = getRecord(tx, id)
		if errors.Is(err, ErrNotFound) {
			return ErrNoCurrent
		}
		return err
	})
	return rec, err
}
