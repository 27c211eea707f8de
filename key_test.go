package worldstore

import (
	"testing"
)

func TestKey_Encode(t *testing.T) {
	key := NewKey("players", "a:b/c d")

	if v := key.String(); v != "/players,a:b/c d" {
		t.Fatalf("unexpected: %v", v)
	}

	encoded := key.Encode()
	if v := encoded; v != "players:a:b%2Fc%20d" {
		t.Fatalf("unexpected: %v", v)
	}

	decoded, err := DecodeKey(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(key) {
		t.Fatalf("unexpected: %v", decoded)
	}
}

func TestKey_Incomplete(t *testing.T) {
	if v := NewKey("players", "").Incomplete(); !v {
		t.Fatalf("unexpected: %v", v)
	}
	if v := NewKey("", "p1").Incomplete(); !v {
		t.Fatalf("unexpected: %v", v)
	}
	if v := NewKey("players", "p1").Incomplete(); v {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestDecodeKey_Malformed(t *testing.T) {
	if _, err := DecodeKey("no-separator"); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := DecodeKey("players:%zz"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestQuery_Match(t *testing.T) {
	rec := &Record{Key: NewKey("players", "p2"), V: 2}

	for idx, tc := range []struct {
		q        Query
		expected bool
	}{
		{Query{Collection: "players"}, true},
		{Query{Collection: "quests"}, false},
		{Query{Collection: "players", StartAfter: "p1"}, true},
		{Query{Collection: "players", StartAfter: "p2"}, false},
		{Query{Collection: "players", VersionBelow: 3}, true},
		{Query{Collection: "players", VersionBelow: 2}, false},
		{Query{Collection: "players", IDs: []string{"p1", "p2"}}, true},
		{Query{Collection: "players", IDs: []string{"p1"}}, false},
	} {
		if v := tc.q.Match(rec); v != tc.expected {
			t.Errorf("#%d unexpected: %v", idx, v)
		}
	}
}
