package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/nameless-numbers/pkg/logging"
)

var log = logging.New("watcher")

// batchWindow collects the burst of events an editor produces for one save
const batchWindow = 100 * time.Millisecond

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeRemoved means the file was removed or renamed away
	ChangeRemoved ChangeType = iota
	// ChangeModified means the file was written or (re)created
	ChangeModified
)

func (t ChangeType) String() string {
	switch t {
	case ChangeRemoved:
		return "removed"
	case ChangeModified:
		return "modified"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// ConfigWatcher watches a single config file. The parent directory is
// watched so that editors replacing the file on save are still seen.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
	done    chan struct{}
	once    sync.Once
}

// NewConfigWatcher creates a watcher for the config file at path
func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &ConfigWatcher{
		watcher: watcher,
		path:    filepath.Clean(abs),
		events:  make(chan ChangeEvent, 16),
		done:    make(chan struct{}),
	}, nil
}

// Path returns the absolute path of the watched file
func (cw *ConfigWatcher) Path() string {
	return cw.path
}

// Start begins watching. Events are delivered until ctx is cancelled.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(cw.path)
	if err := cw.watcher.Add(dir); err != nil {
		cw.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	log.Info("watching config file", "path", cw.path)
	go cw.processEvents(ctx)
	return nil
}

// processEvents filters directory events down to the config file and
// batches them by type
func (cw *ConfigWatcher) processEvents(ctx context.Context) {
	defer cw.once.Do(func() {
		cw.watcher.Close()
		close(cw.events)
		close(cw.done)
	})

	pending := make(map[ChangeType][]string)
	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeRemoved, ChangeModified} {
			paths := pending[t]
			if len(paths) == 0 {
				continue
			}
			select {
			case cw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
		pending = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}

			t, relevant := classify(event.Op)
			if !relevant {
				continue
			}
			log.Debug("config file event", "op", event.Op.String(), "type", t.String())
			pending[t] = append(pending[t], event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err)
		}
	}
}

func classify(op fsnotify.Op) (ChangeType, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ChangeRemoved, true
	case op.Has(fsnotify.Write), op.Has(fsnotify.Create):
		return ChangeModified, true
	}
	return 0, false
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (cw *ConfigWatcher) Events() <-chan ChangeEvent {
	return cw.events
}

// Done is closed once the watcher has released its resources
func (cw *ConfigWatcher) Done() <-chan struct{} {
	return cw.done
}
