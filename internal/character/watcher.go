package character

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce coalesces the burst of events an editor save produces
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads the store when character records change on disk
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	onReload func([]*Definition)
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher starts watching the catalog directory and every character in it.
// onReload receives the enabled characters after each reload and may be nil.
func NewWatcher(store *Store, onReload func([]*Definition), debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	if err := os.MkdirAll(store.Dir(), DirPermission); err != nil {
		return nil, fmt.Errorf("failed to create characters directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		store:    store,
		watcher:  fw,
		onReload: onReload,
		debounce: debounce,
		done:     make(chan struct{}),
	}

	if err := fw.Add(store.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", store.Dir(), err)
	}
	for _, def := range store.All() {
		w.addCharacterDir(filepath.Join(store.Dir(), def.ID))
	}

	w.wg.Add(1)
	go w.watchLoop()

	log.Debug().Str("dir", store.Dir()).Msg("Watching characters directory")
	return w, nil
}

func (w *Watcher) addCharacterDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		log.Debug().Err(err).Str("dir", dir).Msg("Failed to watch character directory")
	}
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Character watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	parent := filepath.Dir(event.Name)

	switch {
	case parent == filepath.Clean(w.store.Dir()):
		// a character directory appeared or went away
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				w.addCharacterDir(event.Name)
			}
		}
	case filepath.Base(event.Name) == RecordFileName:
	default:
		return
	}

	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}

	w.schedule()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}

	if err := w.store.Reload(); err != nil {
		log.Warn().Err(err).Msg("Failed to reload characters")
		return
	}

	log.Info().Msg("Characters reloaded")
	if w.onReload != nil {
		w.onReload(w.store.List())
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	close(w.done)

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
