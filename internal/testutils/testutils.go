package testutils

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/memstore"
)

var EmitCleanUpLog = false

// SetupMemstore returns a client over a fresh in-memory store.
func SetupMemstore(t *testing.T) (context.Context, worldstore.Client, *memstore.Store, func()) {
	ctx := context.Background()
	client, store := memstore.NewClient()

	return ctx, client, store, func() {
		if EmitCleanUpLog {
			t.Logf("remove %d records", store.Len())
		}
		if err := client.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

// RequireEnv skips the test unless name is set, and returns its value.
func RequireEnv(t *testing.T, name string) string {
	v := os.Getenv(name)
	if v == "" {
		t.Skipf("%s is not set", name)
	}
	return v
}

// LogRecorder collects lines written through Logf.
type LogRecorder struct {
	m     sync.Mutex
	lines []string
}

func (r *LogRecorder) Logf(ctx context.Context, format string, args ...interface{}) {
	r.m.Lock()
	defer r.m.Unlock()

	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *LogRecorder) Lines() []string {
	r.m.Lock()
	defer r.m.Unlock()

	return append([]string(nil), r.lines...)
}

// String joins the collected lines, one per line.
func (r *LogRecorder) String() string {
	r.m.Lock()
	defer r.m.Unlock()

	if len(r.lines) == 0 {
		return ""
	}
	return strings.Join(r.lines, "\n") + "\n"
}

func (r *LogRecorder) Reset() {
	r.m.Lock()
	defer r.m.Unlock()

	r.lines = nil
}
