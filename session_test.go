package archetypal_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	archetypal "github.com/samuelduchesne/archetypal-core"
	"github.com/samuelduchesne/archetypal-core/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func newSession(t *testing.T, ctx context.Context, watch bool) (*archetypal.Session, string, *syncBuffer) {
	t.Helper()
	path := writeTemp(t, "schema.yaml", testutil.SchemaYAML)
	cfg := archetypal.DefaultConfig()
	cfg.Schema.Path = path
	cfg.Schema.Watch = watch
	cfg.Log = archetypal.LogConfig{Level: "debug", Format: "json"}
	logs := &syncBuffer{}
	s, err := archetypal.NewSession(ctx, cfg, archetypal.SessionOpt{LogOutput: logs})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, path, logs
}

func TestSession_Parse(t *testing.T) {
	t.Parallel()
	s, _, logs := newSession(t, context.Background(), false)
	doc, iss, err := s.Parse(context.Background(), []byte(testutil.IDF))
	if err != nil || len(iss) != 0 {
		t.Fatalf("Parse: %v %v", err, iss)
	}
	if doc.Registry() != s.Registry() {
		t.Fatal("document not parsed against the session registry")
	}
	if !strings.Contains(logs.String(), `"msg":"parsed legacy document"`) {
		t.Fatalf("debug log missing:\n%s", logs.String())
	}
}

func TestNewSession_Errors(t *testing.T) {
	t.Parallel()
	cfg := archetypal.DefaultConfig()
	if _, err := archetypal.NewSession(context.Background(), cfg); err == nil {
		t.Fatal("config without schema path accepted")
	}
	cfg.Schema.Path = writeTemp(t, "bad.yaml", "objects: [")
	if _, err := archetypal.NewSession(context.Background(), cfg); err == nil {
		t.Fatal("malformed schema accepted")
	}
}

func TestNewSession_ConfigUnits(t *testing.T) {
	t.Parallel()
	cfg := archetypal.DefaultConfig()
	cfg.Schema.Path = writeTemp(t, "track.yaml", `objects:
  Track:
    fields: [{name: length, kind: real, units: furlong}]`)
	if _, err := archetypal.NewSession(context.Background(), cfg, archetypal.SessionOpt{LogOutput: io.Discard}); err == nil {
		t.Fatal("schema with a unit outside the vocabulary accepted")
	}

	cfg.Schema.Units = []archetypal.UnitConfig{{Unit: "furlong", Family: "length", Factor: 201.168}}
	s, err := archetypal.NewSession(context.Background(), cfg, archetypal.SessionOpt{LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	spec, _ := s.Registry().Lookup("Track")
	fs, _ := spec.Field("length")
	if fs.Unit != "furlong" || !s.Registry().Units().Has("furlong") {
		t.Fatalf("length unit = %q", fs.Unit)
	}
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload lost the unit extension: %v", err)
	}
}

func TestSession_WatchSchema(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, path, logs := newSession(t, ctx, false)
	reloaded, err := s.WatchSchema(ctx)
	if err != nil {
		t.Fatalf("WatchSchema: %v", err)
	}
	first := s.Registry()

	// An invalid edit keeps the current registry.
	if err := os.WriteFile(path, []byte("objects: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		return strings.Contains(logs.String(), "schema reload failed")
	}, "invalid schema was not reported")
	if s.Registry() != first {
		t.Fatal("registry replaced by an invalid schema")
	}

	extended := strings.Replace(testutil.SchemaYAML, "objects:\n", "objects:\n  Site:Location:\n    named: true\n    fields:\n      - {name: name, kind: string, required: true}\n", 1)
	if err := os.WriteFile(path, []byte(extended), 0o600); err != nil {
		t.Fatal(err)
	}
	timeout := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-reloaded:
			if !ok {
				t.Fatal("watcher stopped before reloading")
			}
		case <-timeout:
			t.Fatal("no reload signal for the extended schema")
		}
		// A save can be observed half written; wait for the signal that
		// carries the full file.
		if _, ok := s.Registry().Lookup("Site:Location"); ok {
			break
		}
	}
	if _, ok := first.Lookup("Site:Location"); ok {
		t.Fatal("previous registry was mutated")
	}
}

func TestSession_WatchStops(t *testing.T) {
	t.Parallel()
	s, _, _ := newSession(t, context.Background(), false)
	ctx, cancel := context.WithCancel(context.Background())
	done, err := s.WatchSchema(ctx)
	if err != nil {
		t.Fatalf("WatchSchema: %v", err)
	}
	cancel()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-done:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("watcher did not stop")
		}
	}
}
