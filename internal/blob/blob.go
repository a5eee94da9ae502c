// Package blob is a small key-value store for JSON documents: per-wolf
// assistant state and the accepted payment signature ledger.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/log"
)

var logger = log.NewLogger("blob")

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("blob: key not found")

type Store interface {
	Type() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store selected by driver ("memory" or "badger").
func Open(driver, dir string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "badger":
		if dir == "" {
			return nil, fmt.Errorf("badger store requires a directory")
		}
		return NewBadger(dir)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

type namespaced struct {
	Store
	prefix string
}

// Namespace prefixes every key of s with prefix. Close is passed through.
func Namespace(s Store, prefix string) Store {
	return &namespaced{Store: s, prefix: prefix}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.Store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.Store.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.Store.Delete(ctx, n.prefix+key)
}

// GetJSON decodes the value at key into v. A missing key reports found=false
// with a nil error.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
