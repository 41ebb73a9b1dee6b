// Package cache memoizes raw backend scores so repeated scoring of the
// same query and passages skips the backend entirely. Only raw scores are
// cached; normalization is applied by the caller per request.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrKeyNotFound is returned when a key is not present in the cache.
var ErrKeyNotFound = errors.New("key not found in cache")

// Cache defines the standard caching operations.
type Cache interface {
	// Set stores a value with a TTL.
	Set(key string, value []byte, ttl time.Duration) error
	// Get retrieves a value.
	Get(key string) ([]byte, error)
	// Delete removes a value.
	Delete(key string) error
	// Close closes the cache.
	Close() error
}

// ScoreKey derives a cache key from everything that determines a score
// vector: the backend variant, model, query, and the exact passage list in
// order.
func ScoreKey(backendName, model, query string, passages []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", backendName, model, query)
	for _, p := range passages {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EncodeScores serializes a score vector for storage.
func EncodeScores(scores []float64) ([]byte, error) {
	return json.Marshal(scores)
}

// DecodeScores deserializes a stored score vector.
func DecodeScores(data []byte) ([]float64, error) {
	var scores []float64
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("decoding cached scores: %w", err)
	}
	return scores, nil
}

// BadgerCache implements Cache using BadgerDB.
type BadgerCache struct {
	db *badger.DB
}

// NewBadgerCache opens a BadgerDB-backed cache at path.
func NewBadgerCache(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Set stores a value with a TTL.
func (c *BadgerCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// Get retrieves a value.
func (c *BadgerCache) Get(key string) ([]byte, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

// Delete removes a value.
func (c *BadgerCache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close closes the cache.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
