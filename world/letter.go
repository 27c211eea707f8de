package world

import (
	"context"
	"time"

	"go.mercari.io/worldstore/schema"
)

type Letter struct {
	ID     string
	From   string
	To     string
	Body   string
	SentAt time.Time
	Read   bool
	// Parcel is an item sent along, if any.
	Parcel Item

	store *Store
}

var LetterClass = schema.MustDefine[Letter]("Letter",
	schema.IDField("ID"),
	schema.Version(1, schema.Shape{
		"From":   {ID: 0},
		"To":     {ID: 1},
		"Body":   {ID: 2},
		"SentAt": {ID: 3},
		"Read":   {ID: 4},
		"Parcel": {ID: 5, Type: ItemType},
	}),
)

func (l *Letter) Commit(ctx context.Context) error {
	if l.store == nil {
		return ErrDetached
	}
	return l.store.Letters.Commit(ctx, l)
}

func (l *Letter) Delete(ctx context.Context) error {
	if l.store == nil {
		return ErrDetached
	}
	return l.store.Letters.Delete(ctx, l.ID)
}
