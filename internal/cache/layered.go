package cache

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Layered reads through an in-process store to a shared one. The shared store
// is optional.
type Layered struct {
	local  *MemoryStore
	shared ResultStore
	log    *zap.Logger
}

func NewLayered(local *MemoryStore, shared ResultStore, log *zap.Logger) *Layered {
	if log == nil {
		log = zap.NewNop()
	}
	return &Layered{local: local, shared: shared, log: log.Named("cache.result")}
}

func (l *Layered) Load(ctx context.Context) (Entry, error) {
	entry, err := l.local.Load(ctx)
	if err == nil || l.shared == nil {
		return entry, err
	}

	entry, err = l.shared.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			l.log.Warn("shared result load failed", zap.Error(err))
		}
		return Entry{}, ErrCacheMiss
	}
	_ = l.local.Save(ctx, entry)
	return entry, nil
}

// Save always updates the local store; a shared store failure is returned
// after the local copy is in place.
func (l *Layered) Save(ctx context.Context, entry Entry) error {
	if err := l.local.Save(ctx, entry); err != nil {
		return err
	}
	if l.shared == nil {
		return nil
	}
	return l.shared.Save(ctx, entry)
}
