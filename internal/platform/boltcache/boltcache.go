// Package boltcache is the persisted local key/value cache. Values are JSON
// documents grouped in buckets; each Put runs in its own bbolt transaction so a
// multi-key Update is atomic.
package boltcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ErrMiss = errors.New("cache miss")

type Cache struct {
	db *bolt.DB
}

func Open(path string, buckets ...string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get decodes bucket[key] into dest, returning ErrMiss when absent.
func (c *Cache) Get(bucket, key string, dest any) error {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	if data == nil {
		return ErrMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Txn stages writes applied atomically by Update.
type Txn struct {
	bucket *bolt.Bucket
}

func (t *Txn) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return t.bucket.Put([]byte(key), data)
}

func (t *Txn) Delete(key string) error {
	return t.bucket.Delete([]byte(key))
}

func (c *Cache) Update(bucket string, fn func(*Txn) error) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return fn(&Txn{bucket: b})
	})
}

func (c *Cache) Put(bucket, key string, value any) error {
	return c.Update(bucket, func(t *Txn) error { return t.Put(key, value) })
}

func (c *Cache) Delete(bucket, key string) error {
	return c.Update(bucket, func(t *Txn) error { return t.Delete(key) })
}
