// Package watcher feeds files dropped into inbox directories to a handler.
// Events are debounced per path and unchanged content is not handled twice.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/fileid"
)

const (
	defaultDebounce = 400 * time.Millisecond
	defaultQueue    = 64
)

// File is a settled inbox file ready to be summarized.
type File struct {
	Path     string
	SourceID string
	Hash     string
	Content  []byte
}

// Handler processes one inbox file. Errors are logged and do not stop the inbox.
type Handler func(ctx context.Context, f File) error

// Inbox watches directories and hands new or changed files to a Handler,
// one at a time.
type Inbox struct {
	roots      []string
	extensions []string
	recursive  bool
	handle     Handler
	debounce   time.Duration
	existing   bool
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	seen    map[string]string // source id -> content hash
	queue   chan string
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
	stop    sync.Once
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets a logger for file events and handler failures.
func WithLogger(l *zap.Logger) Option {
	return func(in *Inbox) { in.logger = l }
}

// WithDebounce sets how long a path must stay quiet before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(in *Inbox) { in.debounce = d }
}

// WithExistingFiles queues files already present in the roots on Start.
func WithExistingFiles(enabled bool) Option {
	return func(in *Inbox) { in.existing = enabled }
}

// New creates an inbox over roots. extensions filters files by extension
// (empty accepts all).
func New(roots, extensions []string, recursive bool, handle Handler, opts ...Option) *Inbox {
	in := &Inbox{
		roots:      append([]string(nil), roots...),
		extensions: extensions,
		recursive:  recursive,
		handle:     handle,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
		seen:       make(map[string]string),
		queue:      make(chan string, defaultQueue),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Start adds watches for every root, creating missing ones, and begins
// handling files. It returns once the watches are in place.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.started {
		in.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		in.mu.Unlock()
		return err
	}
	for _, root := range in.roots {
		if err := in.watchTree(fsw, filepath.Clean(root), true); err != nil {
			_ = fsw.Close()
			in.mu.Unlock()
			return err
		}
	}
	in.fsw = fsw
	in.started = true
	in.mu.Unlock()

	in.logger.Info("Inbox watcher started",
		zap.Strings("roots", in.roots),
		zap.Strings("extensions", in.extensions),
		zap.Bool("recursive", in.recursive))

	in.wg.Add(2)
	go in.events(ctx, fsw)
	go in.worker(ctx)

	if in.existing {
		go func() {
			for _, root := range in.roots {
				in.enqueueTree(filepath.Clean(root))
			}
		}()
	}
	return nil
}

// Stop stops watching, cancels pending timers and waits for the current file
// to finish. Queued files that were not started are dropped. Stop before
// Start is a no-op.
func (in *Inbox) Stop() {
	in.mu.Lock()
	started := in.started
	in.mu.Unlock()
	if !started {
		return
	}
	in.stop.Do(func() {
		in.mu.Lock()
		for path, t := range in.pending {
			t.Stop()
			delete(in.pending, path)
		}
		fsw := in.fsw
		in.mu.Unlock()
		close(in.done)
		if fsw != nil {
			_ = fsw.Close()
		}
		in.wg.Wait()
	})
}

// Directories returns the watched roots.
func (in *Inbox) Directories() []string {
	return append([]string(nil), in.roots...)
}

// watchTree adds dir (and its subdirectories when recursive) to fsw.
func (in *Inbox) watchTree(fsw *fsnotify.Watcher, dir string, create bool) error {
	if create {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if !in.recursive {
		return fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (in *Inbox) events(ctx context.Context, fsw *fsnotify.Watcher) {
	defer in.wg.Done()
	for {
		select {
		case <-ctx.Done():
			go in.Stop()
			return
		case <-in.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			in.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			in.logger.Warn("Inbox watcher error", zap.Error(err))
		}
	}
}

func (in *Inbox) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	in.logger.Debug("Inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if !in.recursive {
				return
			}
			if err := in.watchTree(fsw, path, false); err != nil {
				in.logger.Warn("Failed to watch new directory", zap.String("path", path), zap.Error(err))
			}
			in.enqueueTree(path)
			return
		}
		if matchExtension(path, in.extensions) {
			in.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		in.mu.Lock()
		if t, ok := in.pending[path]; ok {
			t.Stop()
			delete(in.pending, path)
		}
		delete(in.seen, fileid.SourceID(path))
		in.mu.Unlock()
	}
}

// schedule (re)starts the debounce timer for path.
func (in *Inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
	}
	in.pending[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.pending, path)
		in.mu.Unlock()
		in.enqueue(path)
	})
}

func (in *Inbox) enqueue(path string) {
	select {
	case in.queue <- path:
	case <-in.done:
	}
}

// enqueueTree queues every matching file under dir.
func (in *Inbox) enqueueTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && !in.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if matchExtension(path, in.extensions) {
			in.enqueue(path)
		}
		return nil
	})
}

func (in *Inbox) worker(ctx context.Context) {
	defer in.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-in.done:
			return
		case path := <-in.queue:
			in.process(ctx, path)
		}
	}
}

// process reads path and calls the handler unless the content was already handled.
func (in *Inbox) process(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		in.logger.Debug("Inbox file vanished before processing", zap.String("path", path), zap.Error(err))
		return
	}
	f := File{
		Path:     path,
		SourceID: fileid.SourceID(path),
		Hash:     fileid.ContentHash(content),
		Content:  content,
	}

	in.mu.Lock()
	unchanged := in.seen[f.SourceID] == f.Hash
	in.mu.Unlock()
	if unchanged {
		in.logger.Debug("Inbox file unchanged, skipping", zap.String("path", path))
		return
	}

	if err := in.handle(ctx, f); err != nil {
		in.logger.Error("Failed to process inbox file", zap.String("path", path), zap.Error(err))
		return
	}
	in.mu.Lock()
	in.seen[f.SourceID] = f.Hash
	in.mu.Unlock()
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
