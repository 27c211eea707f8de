package world

import (
	"context"

	"go.mercari.io/worldstore/merge"
	"go.mercari.io/worldstore/schema"
)

// Item is anything a player can carry or a location can stash.
type Item interface {
	ItemName() string
}

type Weapon struct {
	Name   string
	Damage int
	Runes  []string
}

func (w *Weapon) ItemName() string { return w.Name }

type Potion struct {
	Name    string
	Heal    int
	Charges int
}

func (p *Potion) ItemName() string { return p.Name }

// Drink uses one charge and returns the healed amount.
func (p *Potion) Drink() int {
	if p.Charges <= 0 {
		return 0
	}
	p.Charges--
	return p.Heal
}

var (
	WeaponClass = schema.MustDefine[Weapon]("Weapon",
		schema.Version(1, schema.Shape{
			"Name":   {ID: 1},
			"Damage": {ID: 2},
		}),
		schema.Extend(2, 1, schema.Shape{
			"Runes": {ID: 3},
		}),
		schema.Migrate(1, 2, func(ctx context.Context, d schema.Fields) (schema.Fields, error) {
			d["Runes"] = []string{}
			return d, nil
		}),
	)

	PotionClass = schema.MustDefine[Potion]("Potion",
		schema.Version(1, schema.Shape{
			"Name":    {ID: 1},
			"Heal":    {ID: 2},
			"Charges": {ID: 3},
		}),
	)

	// ItemType stores an Item with its variant tag at field id 0.
	ItemType = schema.Dynamic(schema.TaggedUnion(0, map[string]*schema.Class{
		"weapon": WeaponClass,
		"potion": PotionClass,
	}))
)

// itemBinding rebuilds merged items from the variant tag they carry.
var itemBinding = merge.Binding{
	Pick: func(src map[string]interface{}) func() interface{} {
		switch src[schema.VariantKey] {
		case "weapon":
			return func() interface{} { return &Weapon{} }
		case "potion":
			return func() interface{} { return &Potion{} }
		}
		return nil
	},
}
