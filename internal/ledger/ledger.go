// Package ledger keeps the durable set of target links that were already
// downloaded.
//
// The set is loaded once from its Store when the Ledger is opened and is only
// ever added to. Lookups hit the in-memory mirror; inserts write through to
// the store first.
package ledger

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Store persists ledger entries.
type Store interface {
	// Load returns every persisted entry.
	Load(ctx context.Context) ([]string, error)
	// Append persists a single entry.
	Append(ctx context.Context, link string) error
	Close() error
}

// Ledger is a concurrency-safe, append-only set of downloaded links.
type Ledger struct {
	mu    sync.Mutex
	links map[string]struct{}
	store Store
}

// Open loads all entries from store.
func Open(ctx context.Context, store Store) (*Ledger, error) {
	entries, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading ledger")
	}
	l := &Ledger{
		links: make(map[string]struct{}, len(entries)),
		store: store,
	}
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			l.links[e] = struct{}{}
		}
	}
	return l, nil
}

// Contains reports whether link was already downloaded.
func (l *Ledger) Contains(link string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.links[link]
	return ok
}

// InsertIfAbsent records link. It reports false without touching the
// store when the link is already present, so a link is persisted at most
// once per ledger.
func (l *Ledger) InsertIfAbsent(ctx context.Context, link string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.links[link]; ok {
		return false, nil
	}
	if err := l.store.Append(ctx, link); err != nil {
		return false, errors.Wrapf(err, "recording %s", link)
	}
	l.links[link] = struct{}{}
	return true, nil
}

// Len returns the number of recorded links.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.links)
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}
