package world

import (
	"context"
	"time"

	"go.mercari.io/worldstore/schema"
)

type Stats struct {
	HP int
	MP int
}

var StatsClass = schema.MustDefine[Stats]("Stats",
	schema.Version(1, schema.Shape{
		"HP": {ID: 0},
		"MP": {ID: 1},
	}),
)

// Player is owned by one account; nobody else mutates it.
type Player struct {
	schema.Base

	ID        string
	Name      string
	Level     int
	Gold      int
	Stats     *Stats
	Inventory []Item
	Location  string
	LastSeen  time.Time

	// runtime only
	store      *Store
	lastAccess time.Time
}

const playerStartGold = 10

var PlayerClass = schema.MustDefine[Player]("Player",
	schema.IDField("ID"),
	schema.Version(1, schema.Shape{
		"Nick":      {ID: 0},
		"Inventory": {ID: 1, Type: schema.ArrayOf(ItemType)},
	}),
	schema.Extend(2, 1, schema.Shape{
		"Name":  {ID: 2},
		"Level": {ID: 3},
	}, "Nick"),
	schema.Extend(3, 2, schema.Shape{
		"Gold":     {ID: 4},
		"Stats":    {ID: 5, Type: schema.Nested(StatsClass)},
		"Location": {ID: 6},
		"LastSeen": {ID: 7},
	}),
	schema.Migrate(1, 2, func(ctx context.Context, d schema.Fields) (schema.Fields, error) {
		d.Rename("Nick", "Name")
		d["Level"] = 1
		return d, nil
	}),
	schema.Migrate(2, 3, func(ctx context.Context, d schema.Fields) (schema.Fields, error) {
		d["Gold"] = playerStartGold
		return d, nil
	}),
	schema.OnDeserialize(func(ctx context.Context, instance, parent interface{}) error {
		p := instance.(*Player)
		if p.Stats == nil {
			p.Stats = &Stats{HP: 100}
		}
		return nil
	}),
)

// LastAccess is when the player was last read through the store.
func (p *Player) LastAccess() time.Time { return p.lastAccess }

// Give puts item into the inventory.
func (p *Player) Give(item Item) {
	p.Inventory = append(p.Inventory, item)
}

// Take removes the first item named name from the inventory.
func (p *Player) Take(name string) (Item, bool) {
	for idx, item := range p.Inventory {
		if item.ItemName() == name {
			p.Inventory = append(p.Inventory[:idx:idx], p.Inventory[idx+1:]...)
			return item, true
		}
	}
	return nil, false
}

func (p *Player) Commit(ctx context.Context) error {
	if p.store == nil {
		return ErrDetached
	}
	p.LastSeen = time.Now()
	return p.store.Players.Commit(ctx, p)
}

func (p *Player) Delete(ctx context.Context) error {
	if p.store == nil {
		return ErrDetached
	}
	return p.store.Players.Delete(ctx, p.ID)
}
