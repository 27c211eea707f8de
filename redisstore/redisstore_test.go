package redisstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/internal/testutils"
	"go.mercari.io/worldstore/testsuite"
)

func redisAddr(t *testing.T) string {
	host := testutils.RequireEnv(t, "REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	return host + ":" + port
}

func TestRedisTestSuite(t *testing.T) {
	addr := redisAddr(t)

	testsuite.Run(t, func(t *testing.T) (worldstore.Client, func()) {
		ctx := context.Background()
		s, err := Open(ctx, addr, WithPrefix("worldstore-test:"+uuid.NewString()+":"))
		if err != nil {
			t.Fatal(err)
		}
		client := worldstore.NewClient(s)
		return client, func() {
			if err := s.Purge(ctx); err != nil {
				t.Error(err)
			}
			if err := client.Close(); err != nil {
				t.Fatal(err)
			}
		}
	})
}

func TestToRecord(t *testing.T) {
	key := worldstore.NewKey("players", "p1")

	_, err := toRecord(key, map[string]string{})
	if err != worldstore.ErrNoSuchRecord {
		t.Fatalf("unexpected: %v", err)
	}

	_, err = toRecord(key, map[string]string{"v": "x"})
	if err == nil {
		t.Fatal("expected an error")
	}

	rec, err := toRecord(key, map[string]string{"v": "3", "d": "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if v := rec.V; v != 3 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := string(rec.D); v != "abc" {
		t.Fatalf("unexpected: %v", v)
	}
}
