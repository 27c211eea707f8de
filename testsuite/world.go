package testsuite

import (
	"context"
	"testing"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/world"
)

func worldPlayerRoundTrip(t *testing.T, ctx context.Context, client worldstore.Client) {
	s, err := world.Open(ctx, client, nil)
	if err != nil {
		t.Fatal(err)
	}

	p, err := s.NewPlayer(ctx, "Rex")
	if err != nil {
		t.Fatal(err)
	}
	p.Give(&world.Weapon{Name: "axe", Damage: 7})
	p.Gold = 42
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	s2, err := world.Open(ctx, client, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s2.Players.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v := got.Gold; v != 42 {
		t.Errorf("unexpected: %v", v)
	}
	if v := len(got.Inventory); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if v, ok := got.Inventory[0].(*world.Weapon); !ok || v.Name != "axe" {
		t.Errorf("unexpected: %#v", got.Inventory[0])
	}
}

func worldLocationOverlayRoundTrip(t *testing.T, ctx context.Context, client worldstore.Client) {
	s, err := world.Open(ctx, client, nil)
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.NewPlayer(ctx, "Rex")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Move(ctx, p, "north"); err != nil {
		t.Fatal(err)
	}

	s2, err := world.Open(ctx, client, nil)
	if err != nil {
		t.Fatal(err)
	}
	mill, err := s2.Locations.Get(ctx, "old-mill")
	if err != nil {
		t.Fatal(err)
	}
	if v := mill.Visitors; len(v) != 1 || v[0] != p.ID {
		t.Errorf("unexpected: %v", v)
	}
	if v := mill.Name; v != "Old Mill" {
		t.Errorf("unexpected: %v", v)
	}
	if v := len(mill.Stash); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if _, ok := mill.Stash[0].(*world.Potion); !ok {
		t.Errorf("unexpected: %#v", mill.Stash[0])
	}
}
