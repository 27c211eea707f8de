package world

import (
	"context"
	"sort"

	"go.mercari.io/worldstore/manager"
	"go.mercari.io/worldstore/merge"
	"go.mercari.io/worldstore/schema"
)

// Location is defined in code, per id. Only the mutable part (visitors,
// stash, state) is persisted, as an overlay over the template.
//
// Locations are shared by every player visiting them and nothing guards
// concurrent mutation: the last Commit wins.
type Location struct {
	ID          string
	Name        string
	Description string
	Exits       map[string]string
	Visitors    []string
	Stash       []Item
	Lit         bool

	store *Store
}

var LocationClass = schema.MustDefine[Location]("Location",
	schema.IDField("ID"),
	schema.Version(1, schema.Shape{
		"Name":        {ID: 0},
		"Description": {ID: 1},
		"Exits":       {ID: 2},
		"Visitors":    {ID: 3},
		"Stash":       {ID: 4, Type: schema.ArrayOf(ItemType)},
	}),
	schema.Extend(2, 1, schema.Shape{
		"Lit": {ID: 5},
	}),
	schema.Migrate(1, 2, func(ctx context.Context, d schema.Fields) (schema.Fields, error) {
		d["Lit"] = true
		return d, nil
	}),
)

// LocationClassMap rebuilds the stashed items of a merged overlay.
var LocationClassMap = merge.ClassMap{
	"Stash": itemBinding,
}

// Locations holds the templates of every location of the world.
var Locations = manager.NewTemplateRegistry[Location]()

func init() {
	Locations.Register("town-square", func() *Location {
		return &Location{
			Name:        "Town Square",
			Description: "A fountain gurgles in the middle of the square.",
			Exits:       map[string]string{"north": "old-mill", "east": "cellar"},
			Lit:         true,
		}
	})
	Locations.Register("old-mill", func() *Location {
		return &Location{
			Name:        "Old Mill",
			Description: "The wheel hasn't turned in years.",
			Exits:       map[string]string{"south": "town-square"},
			Stash:       []Item{&Potion{Name: "dusty tonic", Heal: 5, Charges: 1}},
			Lit:         true,
		}
	})
	Locations.Register("cellar", func() *Location {
		return &Location{
			Name:        "Cellar",
			Description: "Damp stone and the smell of old wine.",
			Exits:       map[string]string{"west": "town-square"},
			Stash:       []Item{&Weapon{Name: "rusty knife", Damage: 2}},
		}
	})
}

// Enter records visitor as present.
func (l *Location) Enter(visitor string) {
	for _, v := range l.Visitors {
		if v == visitor {
			return
		}
	}
	l.Visitors = append(l.Visitors, visitor)
	sort.Strings(l.Visitors)
}

func (l *Location) Leave(visitor string) {
	for idx, v := range l.Visitors {
		if v == visitor {
			l.Visitors = append(l.Visitors[:idx:idx], l.Visitors[idx+1:]...)
			return
		}
	}
}

// Exit returns the location id reached through direction.
func (l *Location) Exit(direction string) (string, bool) {
	id, ok := l.Exits[direction]
	return id, ok
}

// Drop stashes item here.
func (l *Location) Drop(item Item) {
	l.Stash = append(l.Stash, item)
}

// PickUp removes the first stashed item named name.
func (l *Location) PickUp(name string) (Item, bool) {
	for idx, item := range l.Stash {
		if item.ItemName() == name {
			l.Stash = append(l.Stash[:idx:idx], l.Stash[idx+1:]...)
			return item, true
		}
	}
	return nil, false
}

func (l *Location) Commit(ctx context.Context) error {
	if l.store == nil {
		return ErrDetached
	}
	return l.store.Locations.Commit(ctx, l)
}

// Delete drops the overlay and hides the location from its store.
// Committing the location again persists a new overlay and makes it
// reachable.
func (l *Location) Delete(ctx context.Context) error {
	if l.store == nil {
		return ErrDetached
	}
	return l.store.Locations.Delete(ctx, l.ID)
}
