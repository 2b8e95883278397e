package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/storage"
)

// ReloadKind re-reads one record-set from the provider and swaps it into
// the snapshot, notifying subscribers. Used when a record-set file is
// edited outside the process.
func (s *Store) ReloadKind(kind storage.Kind) error {
	s.mu.Lock()
	var err error
	switch kind {
	case storage.KindCollections:
		s.snap.Collections, err = reload[models.Collection](s, kind)
	case storage.KindSections:
		s.snap.Sections, err = reload[models.Section](s, kind)
	case storage.KindTypes:
		s.snap.ItemTypes, err = reload[models.ItemType](s, kind)
	case storage.KindItems:
		s.snap.Items, err = reload[models.Item](s, kind)
	case storage.KindFields:
		s.snap.FieldDefinitions, err = reload[models.FieldDefinition](s, kind)
	case storage.KindUsers:
		s.snap.Users, err = reload[models.User](s, kind)
	case storage.KindBarcodes:
		s.snap.Barcodes, err = reload[models.Barcode](s, kind)
	case storage.KindSettings:
		var cfg models.Settings
		if ferr := s.fetch(kind, &cfg); ferr != nil {
			err = ferr
		} else {
			if cfg == nil {
				cfg = models.Settings{}
			}
			s.snap.Settings = cfg
		}
	default:
		err = fmt.Errorf("store: reload: unknown kind %q", kind)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(kind)
	return nil
}

func reload[T any](s *Store, kind storage.Kind) ([]T, error) {
	var out []T
	if err := s.fetch(kind, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch starts an fsnotify watcher on the JSON data directory and
// reloads any record-set whose file changes on disk, until ctx is
// cancelled. Events are debounced per kind because editors and the
// provider's own atomic renames produce bursts.
//
// The store's own saves also land here; a reload after a save is
// idempotent, so no self-event filtering is needed.
func (s *Store) Watch(ctx context.Context, dir *storage.JSONDir, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", dir.Root()))

	pending := make(map[storage.Kind]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(200 * time.Millisecond)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			for kind := range pending {
				if err := s.ReloadKind(kind); err != nil {
					logger.Warn("watcher: reload failed",
						slog.String("kind", string(kind)),
						slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: reloaded", slog.String("kind", string(kind)))
			}
			pending = make(map[storage.Kind]struct{})

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			kind, ok := dir.KindForPath(ev.Name)
			if !ok {
				continue
			}
			pending[kind] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
