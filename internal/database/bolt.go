package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/franckalain/foodmonster/internal/models"
	"go.etcd.io/bbolt"
)

var bucketImages = []byte("images")

// BoltBackend keeps one key per image in a bbolt bucket.
type BoltBackend struct {
	db *bbolt.DB
}

// NewBoltBackend opens or creates the bolt file at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("error opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketImages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating bucket: %w", err)
	}

	return &BoltBackend{db: db}, nil
}

// Load decodes every key in the bucket.
func (b *BoltBackend) Load(ctx context.Context) (models.Store, error) {
	store := models.Store{}
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketImages).ForEach(func(k, v []byte) error {
			var rec models.ImageRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("error decoding record %s: %w", k, err)
			}
			store[string(k)] = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Save drops and refills the bucket in a single update transaction.
func (b *BoltBackend) Save(ctx context.Context, store models.Store) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketImages); err != nil {
			return err
		}
		bucket, err := tx.CreateBucket(bucketImages)
		if err != nil {
			return err
		}
		for id, rec := range store {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("error encoding record %s: %w", id, err)
			}
			if err := bucket.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
