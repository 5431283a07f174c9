// Package watcher re-indexes job seekers and jobs when CV uploads or the job
// board database change on disk. Events are debounced per user and per database.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 2 * time.Second

// CVExtensions are the upload types the CV extractor understands.
var CVExtensions = []string{".pdf", ".docx", ".doc", ".odt", ".rtf", ".txt"}

// dbKey is the debounce key shared by every database event.
const dbKey = "\x00db"

// Watcher watches the uploads directory and the job board database file.
type Watcher struct {
	uploadsDir  string
	dbPath      string
	extensions  []string
	onProfile   func(userID int64)
	onSync      func()
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets the quiet period before a callback fires.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions replaces CVExtensions as the upload filter.
func WithExtensions(exts ...string) WatcherOption {
	return func(w *Watcher) { w.extensions = exts }
}

// NewWatcher creates a watcher. onProfile is called with the owner of a
// changed CV; onSync is called when the database changes or a CV's owner
// cannot be told from its file name. Either path may be empty to skip it.
func NewWatcher(uploadsDir, dbPath string, onProfile func(userID int64), onSync func(), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		extensions:  CVExtensions,
		onProfile:   onProfile,
		onSync:      onSync,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	if uploadsDir != "" {
		w.uploadsDir = filepath.Clean(uploadsDir)
	}
	if dbPath != "" {
		w.dbPath = filepath.Clean(dbPath)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher
	w.logger.Debug("watcher starting", zap.String("uploads", w.uploadsDir), zap.String("database", w.dbPath))

	if w.uploadsDir != "" {
		if err := w.addTreeLocked(w.uploadsDir); err != nil {
			_ = watcher.Close()
			w.watcher = nil
			return fmt.Errorf("watch uploads: %w", err)
		}
	}
	if w.dbPath != "" {
		// SQLite replaces and appends to sidecar files, so watch the directory.
		if err := watcher.Add(filepath.Dir(w.dbPath)); err != nil {
			_ = watcher.Close()
			w.watcher = nil
			return fmt.Errorf("watch database: %w", err)
		}
	}
	w.started = true
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if w.isDatabaseFile(path) {
		if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
			w.schedule(dbKey, w.onSync)
		}
		return
	}
	if w.uploadsDir == "" || !inDir(w.uploadsDir, path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		w.cvChanged(path)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.cvChanged(path)
	}
}

// cvChanged re-indexes the owner of a CV file, or everything when the
// owner cannot be told from the file name.
func (w *Watcher) cvChanged(path string) {
	if !matchExtension(path, w.extensions) {
		return
	}
	if id, ok := UserIDFromPath(path); ok {
		if w.onProfile != nil {
			w.schedule("cv:"+strconv.FormatInt(id, 10), func() { w.onProfile(id) })
		}
		return
	}
	w.schedule(dbKey, w.onSync)
}

// handleNewDirectory watches a directory created under the uploads root and
// schedules every CV already inside it.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.logger.Debug("watcher handling new directory", zap.String("path", dirPath))
	w.mu.Lock()
	if w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if err := w.addTreeLocked(dirPath); err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dirPath), zap.Error(err))
	}
	w.mu.Unlock()

	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		w.cvChanged(path)
		return nil
	})
}

// addTreeLocked watches root and every directory below it, creating root if missing.
func (w *Watcher) addTreeLocked(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) isDatabaseFile(path string) bool {
	if w.dbPath == "" {
		return false
	}
	return path == w.dbPath || path == w.dbPath+"-wal" || path == w.dbPath+"-journal"
}

// schedule runs fn once no event with the same key has arrived for the debounce period.
func (w *Watcher) schedule(key string, fn func()) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.debounceMap[key]; ok {
		t.Stop()
	}
	w.debounceMap[key] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, key)
		w.mu.Unlock()
		w.logger.Debug("watcher firing (debounced)", zap.String("key", strings.TrimPrefix(key, "\x00")))
		fn()
	})
}

// Stop stops the watcher and cancels pending callbacks.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for key, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, key)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

// UserIDFromPath reads the uploader's user id from CV file names of the form
// "<userID>-<unix millis><ext>".
func UserIDFromPath(path string) (int64, bool) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	idPart, _, _ := strings.Cut(name, "-")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
