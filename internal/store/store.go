// Package store is the Symbol Store: persistent, concurrent-reader /
// single-writer key-value storage of Symbols, FileRecords and
// DependencyRecords, with prefix-range scans. Backed by go.etcd.io/bbolt,
// configured with three buckets ("symbols", "files", "dependencies") inside
// one environment, the way the teacher's internal/core packages group
// related on-disk state under one file handle.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	indexerrors "github.com/standardbeagle/groovy-lsp-index/internal/errors"
	"github.com/standardbeagle/groovy-lsp-index/internal/types"
)

var (
	bucketSymbols      = []byte("symbols")
	bucketFiles        = []byte("files")
	bucketDependencies = []byte("dependencies")
)

// Store is the embedded Symbol Store. The zero value is not usable; call
// Initialize first.
type Store struct {
	mu sync.RWMutex
	db *bbolt.DB

	cacheMu sync.Mutex
	cache   map[string][]types.Symbol
}

// New returns an unopened Store. Call Initialize before any other method.
func New() *Store {
	return &Store{cache: make(map[string][]types.Symbol)}
}

// Initialize ensures indexPath's parent directory exists and opens the
// bbolt environment at indexPath, creating the three buckets if absent.
// mapSizeBytes only sets the allocation growth step (1/16 of it, clamped
// to 1 MiB..256 MiB); the database file is not capped at that size. Before a successful Initialize, every other
// method fails with errors.KindStoreNotInitialized.
func (s *Store) Initialize(indexPath string, mapSizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return indexerrors.New(indexerrors.KindStoreInitFailed, "store.Initialize", err).WithPath(indexPath)
	}

	opts := *bbolt.DefaultOptions
	opts.Timeout = 5 * time.Second
	db, err := bbolt.Open(indexPath, 0o644, &opts)
	if err != nil {
		return indexerrors.New(indexerrors.KindStoreInitFailed, "store.Initialize", err).WithPath(indexPath)
	}

	if mapSizeBytes > 0 {
		// bbolt grows the backing mmap automatically; AllocSize only tunes
		// the growth step so we don't remap on every small write.
		db.AllocSize = int(clampInt64(mapSizeBytes/16, 1<<20, 1<<28))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketSymbols, bucketFiles, bucketDependencies} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return indexerrors.New(indexerrors.KindStoreInitFailed, "store.Initialize", err).WithPath(indexPath)
	}

	s.db = db
	return nil
}

func clampInt64(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (s *Store) requireOpen() (*bbolt.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, indexerrors.New(indexerrors.KindStoreNotInitialized, "store", fmt.Errorf("store not initialized"))
	}
	return s.db, nil
}

// AddSymbol writes sym under a key encoding name:kind:location:line:column
// so lexicographic key order yields name-prefix order. Idempotent on the
// uniqueness tuple (the key itself). Invalidates the query cache.
func (s *Store) AddSymbol(sym types.Symbol) error {
	db, err := s.requireOpen()
	if err != nil {
		return err
	}

	key := encodeKey(sym)
	val := encodeValue(sym)

	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSymbols).Put(key, val)
	})
	if err != nil {
		return indexerrors.New(indexerrors.KindStoreIOFailed, "store.AddSymbol", err).WithPath(sym.Location)
	}

	s.invalidateCache()
	return nil
}

// AddFile upserts a FileRecord with the current timestamp.
func (s *Store) AddFile(path string) error {
	db, err := s.requireOpen()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).Put([]byte(path), encodeTimestamp(time.Now()))
	})
	if err != nil {
		return indexerrors.New(indexerrors.KindStoreIOFailed, "store.AddFile", err).WithPath(path)
	}
	return nil
}

// AddDependency upserts a DependencyRecord with the current timestamp.
func (s *Store) AddDependency(path string) error {
	db, err := s.requireOpen()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDependencies).Put([]byte(path), encodeTimestamp(time.Now()))
	})
	if err != nil {
		return indexerrors.New(indexerrors.KindStoreIOFailed, "store.AddDependency", err).WithPath(path)
	}
	return nil
}

// RemoveFile deletes every symbol whose deserialized location equals path,
// plus the matching FileRecord, in one write transaction. After this call
// no symbol from path remains reachable via Search or GetFileSymbols.
func (s *Store) RemoveFile(path string) error {
	db, err := s.requireOpen()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		symbols := tx.Bucket(bucketSymbols)
		c := symbols.Cursor()
		var toDelete [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			sym, err := decodeValue(v)
			if err != nil {
				continue
			}
			if sym.Location == path {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
		}
		for _, k := range toDelete {
			if err := symbols.Delete(k); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketFiles).Delete([]byte(path))
	})
	if err != nil {
		return indexerrors.New(indexerrors.KindStoreIOFailed, "store.RemoveFile", err).WithPath(path)
	}

	s.invalidateCache()
	return nil
}

// Search returns every symbol whose key begins with query, in key order. An
// empty query matches every symbol. The read transaction is not held open
// across the returned results: matches are materialized into the returned
// slice before the transaction closes, per the store's snapshot-but-don't-
// pin-a-long-lived-cursor contract.
func (s *Store) Search(query string) ([]types.Symbol, error) {
	if cached, ok := s.lookupCache(query); ok {
		return cached, nil
	}

	db, err := s.requireOpen()
	if err != nil {
		return nil, err
	}

	var results []types.Symbol
	prefix := []byte(query)
	err = db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSymbols).Cursor()
		var k, v []byte
		if len(prefix) == 0 {
			k, v = c.First()
		} else {
			k, v = c.Seek(prefix)
		}
		for ; k != nil; k, v = c.Next() {
			if len(prefix) > 0 && !strings.HasPrefix(string(k), query) {
				break
			}
			sym, err := decodeValue(v)
			if err != nil {
				continue
			}
			results = append(results, sym)
		}
		return nil
	})
	if err != nil {
		return nil, indexerrors.New(indexerrors.KindStoreIOFailed, "store.Search", err)
	}

	s.storeCache(query, results)
	return results, nil
}

// GetFileSymbols returns every symbol whose location equals path.
func (s *Store) GetFileSymbols(path string) ([]types.Symbol, error) {
	db, err := s.requireOpen()
	if err != nil {
		return nil, err
	}

	var results []types.Symbol
	err = db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSymbols).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			sym, err := decodeValue(v)
			if err != nil {
				continue
			}
			if sym.Location == path {
				results = append(results, sym)
			}
		}
		return nil
	})
	if err != nil {
		return nil, indexerrors.New(indexerrors.KindStoreIOFailed, "store.GetFileSymbols", err).WithPath(path)
	}
	return results, nil
}

// Close flushes and releases resources. Idempotent; after Close, every
// method fails with errors.KindStoreNotInitialized.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.invalidateCache()
	if err != nil {
		return indexerrors.New(indexerrors.KindStoreIOFailed, "store.Close", err)
	}
	return nil
}

func (s *Store) invalidateCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache = make(map[string][]types.Symbol)
}

func (s *Store) lookupCache(query string) ([]types.Symbol, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	v, ok := s.cache[query]
	return v, ok
}

func (s *Store) storeCache(query string, results []types.Symbol) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[query] = results
}

// encodeKey produces name:kind:location:line:column with line/column
// zero-padded so that numeric order matches lexicographic byte order within
// an otherwise-identical name:kind:location prefix.
func encodeKey(sym types.Symbol) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%010d:%010d",
		sym.Name, sym.Kind, sym.Location, sym.Line, sym.Column))
}

func encodeValue(sym types.Symbol) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%d|%d",
		sym.Name, sym.Kind, sym.Location, sym.Line, sym.Column))
}

func decodeValue(v []byte) (types.Symbol, error) {
	parts := strings.SplitN(string(v), "|", 5)
	if len(parts) != 5 {
		return types.Symbol{}, fmt.Errorf("store: malformed symbol record %q", v)
	}
	line, err := strconv.Atoi(parts[3])
	if err != nil {
		return types.Symbol{}, err
	}
	col, err := strconv.Atoi(parts[4])
	if err != nil {
		return types.Symbol{}, err
	}
	return types.Symbol{
		Name:     parts[0],
		Kind:     types.SymbolKind(parts[1]),
		Location: parts[2],
		Line:     line,
		Column:   col,
	}, nil
}

func encodeTimestamp(t time.Time) []byte {
	return []byte(t.Format(time.RFC3339Nano))
}

func decodeTimestamp(v []byte) time.Time {
	t, err := time.Parse(time.RFC3339Nano, string(v))
	if err != nil {
		return time.Time{}
	}
	return t
}
