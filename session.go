package archetypal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/internal/ctxlog"
	"github.com/samuelduchesne/archetypal-core/schema"
)

// reloadDelay coalesces the bursts of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

// Session holds a schema loaded from a configuration and parses documents
// against it. The registry is swapped atomically on reload; documents
// already parsed keep the registry they were parsed with.
type Session struct {
	cfg  Config
	path string
	load schema.LoadOpt
	log  *slog.Logger
	reg  atomic.Pointer[schema.Registry]
}

// SessionOpt configures NewSession.
type SessionOpt struct {
	// LogOutput receives the session log; nil means stderr.
	LogOutput io.Writer
}

// NewSession validates cfg and loads its schema. When cfg.Schema.Watch is
// set the schema file is watched until ctx is done.
func NewSession(ctx context.Context, cfg Config, opts ...SessionOpt) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("archetypal: config: %w", err)
	}
	var opt SessionOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	out := opt.LogOutput
	if out == nil {
		out = os.Stderr
	}
	path, err := filepath.Abs(cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("archetypal: schema path: %w", err)
	}
	load, err := cfg.Schema.loadOpt()
	if err != nil {
		return nil, fmt.Errorf("archetypal: config: schema: %w", err)
	}
	s := &Session{cfg: cfg, path: path, load: load, log: newLogger(cfg.Log, out)}

	reg, err := schema.LoadFile(path, load)
	if err != nil {
		return nil, err
	}
	s.reg.Store(reg)
	s.log.Info("schema loaded", slog.String("path", path), slog.String("version", reg.Version()), slog.Int("types", reg.Len()))

	if cfg.Schema.Watch {
		if _, err := s.WatchSchema(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Registry returns the current schema.
func (s *Session) Registry() *schema.Registry { return s.reg.Load() }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.log }

// Parse reads a document against the current schema with the configured
// parse options.
func (s *Session) Parse(ctx context.Context, data []byte) (*idf.Document, diag.Issues, error) {
	ctx = ctxlog.WithLogger(ctx, s.log)
	return ParseDocument(ctx, data, s.Registry(), s.cfg.Parse.opt())
}

// Reload reads the schema file again. On failure the current registry is
// kept and the error returned.
func (s *Session) Reload() error {
	reg, err := schema.LoadFile(s.path, s.load)
	if err != nil {
		return err
	}
	s.reg.Store(reg)
	s.log.Info("schema reloaded", slog.String("path", s.path), slog.String("version", reg.Version()), slog.Int("types", reg.Len()))
	return nil
}

// WatchSchema reloads the schema whenever its file is written. It returns
// once the watch is in place. The returned channel receives a value after
// each successful reload (a reload not yet received is coalesced with the
// next) and is closed when watching stops, after ctx is done.
func (s *Session) WatchSchema(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("archetypal: watch: %w", err)
	}
	// The directory is watched since editors often replace the file.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("archetypal: watch %s: %w", s.path, err)
	}
	reloaded := make(chan struct{}, 1)
	go func() {
		defer close(reloaded)
		defer w.Close()
		s.watch(ctx, w, reloaded)
	}()
	s.log.Debug("watcher: started", slog.String("path", s.path))
	return reloaded, nil
}

func (s *Session) watch(ctx context.Context, w *fsnotify.Watcher, reloaded chan<- struct{}) {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.log.Debug("watcher: stopped", slog.String("path", s.path))
			return

		case <-timerC:
			timerC = nil
			if err := s.Reload(); err != nil {
				s.log.Warn("schema reload failed, keeping previous", slog.String("path", s.path), slog.String("error", err.Error()))
				continue
			}
			select {
			case reloaded <- struct{}{}:
			default:
			}

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				if timer == nil {
					timer = time.NewTimer(reloadDelay)
				} else {
					timer.Reset(reloadDelay)
				}
				timerC = timer.C
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				s.log.Warn("watcher: schema file went away, keeping previous", slog.String("path", s.path))
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}
