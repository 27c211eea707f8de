package gormstore

import (
	"testing"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/internal/testutils"
	"go.mercari.io/worldstore/testsuite"
)

func TestGormTestSuite(t *testing.T) {
	dsn := testutils.RequireEnv(t, "POSTGRES_DSN")
	logs := &testutils.LogRecorder{}

	testsuite.Run(t, func(t *testing.T) (worldstore.Client, func()) {
		s, err := Open(dsn, WithLogger(logs.Logf))
		if err != nil {
			t.Fatal(err)
		}
		if err := s.db.Where("1 = 1").Delete(&record{}).Error; err != nil {
			t.Fatal(err)
		}
		client := worldstore.NewClient(s)
		return client, func() {
			if err := client.Close(); err != nil {
				t.Fatal(err)
			}
		}
	})

	for _, line := range logs.Lines() {
		t.Log(line)
	}
}
