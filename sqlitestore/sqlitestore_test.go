package sqlitestore

import (
	"path/filepath"
	"testing"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/testsuite"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestSqliteTestSuite(t *testing.T) {
	testsuite.Run(t, func(t *testing.T) (worldstore.Client, func()) {
		client := worldstore.NewClient(openTempStore(t))
		return client, func() {
			if err := client.Close(); err != nil {
				t.Fatal(err)
			}
		}
	})
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.db")

	client, err := NewClient(path)
	if err != nil {
		t.Fatal(err)
	}
	key := worldstore.NewKey("players", "p1")
	ctx := t.Context()
	if err := client.Create(ctx, &worldstore.Record{Key: key, V: 2, D: []byte{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}

	client, err = NewClient(path)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	rec, err := client.FindByID(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v := rec.V; v != 2 {
		t.Errorf("unexpected: %v", v)
	}
}
