package codec

import (
	"bytes"
	"compress/flate"
	"context"
	"testing"
	"time"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/schema"
)

type stats struct {
	HP int
}

type hero struct {
	schema.Base

	ID    string
	Name  string
	Born  time.Time
	Tags  []string
	Stats *stats
	Bag   []interface{}
}

type potion struct {
	Heal int
}

var (
	statsClass  = schema.MustDefine[stats]("Stats", schema.Version(1, schema.Shape{"HP": {ID: 0}}))
	potionClass = schema.MustDefine[potion]("Potion", schema.Version(1, schema.Shape{"Heal": {ID: 1}}))
	heroClass   = schema.MustDefine[hero]("Hero",
		schema.IDField("ID"),
		schema.Version(1, schema.Shape{
			"Name":  {ID: 0},
			"Born":  {ID: 1},
			"Tags":  {ID: 2},
			"Stats": {ID: 3, Type: schema.Nested(statsClass)},
			"Bag": {ID: 4, Type: schema.ArrayOf(schema.Dynamic(schema.TaggedUnion(0, map[string]*schema.Class{
				"potion": potionClass,
			})))},
		}),
	)
)

func TestCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()

	born := time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)
	in := &hero{
		ID:    "h1",
		Name:  "Rex",
		Born:  born,
		Tags:  []string{"a", "b"},
		Stats: &stats{HP: 42},
		Bag:   []interface{}{&potion{Heal: 7}, nil, &potion{Heal: 9}},
	}

	data, err := heroClass.Serialize(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := ToRecord("heroes", data)
	if err != nil {
		t.Fatal(err)
	}
	if v := rec.Key; !v.Equal(worldstore.NewKey("heroes", "h1")) {
		t.Fatalf("unexpected: %v", v)
	}
	if v := rec.V; v != 1 {
		t.Fatalf("unexpected: %v", v)
	}

	back, err := FromRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	if v := back.ID; v != "h1" {
		t.Fatalf("unexpected: %v", v)
	}

	out := &hero{}
	if err := heroClass.DeserializeInto(ctx, back, out); err != nil {
		t.Fatal(err)
	}
	if v := out.ID; v != "h1" {
		t.Fatalf("unexpected: %v", v)
	}
	if v := out.Name; v != "Rex" {
		t.Fatalf("unexpected: %v", v)
	}
	if v := out.Born; !v.Equal(born) {
		t.Fatalf("unexpected: %v", v)
	}
	if v := out.Tags; len(v) != 2 || v[0] != "a" || v[1] != "b" {
		t.Fatalf("unexpected: %v", v)
	}
	if v := out.Stats; v == nil || v.HP != 42 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := len(out.Bag); v != 3 {
		t.Fatalf("unexpected: %v", v)
	}
	if v, ok := out.Bag[0].(*potion); !ok || v.Heal != 7 {
		t.Fatalf("unexpected: %#v", out.Bag[0])
	}
	if v := out.Bag[1]; v != nil {
		t.Fatalf("unexpected: %#v", v)
	}
	if v, ok := out.Bag[2].(*potion); !ok || v.Heal != 9 {
		t.Fatalf("unexpected: %#v", out.Bag[2])
	}
}

func TestCodec_IsDeterministic(t *testing.T) {
	ctx := context.Background()

	in := &hero{ID: "h2", Name: "Same", Tags: []string{"x"}, Stats: &stats{HP: 1}}
	data, err := heroClass.Serialize(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	b1, err := Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatal("encoding is not stable")
	}
}

func TestCodec_RecordKeyWins(t *testing.T) {
	blob, err := Encode(&schema.Data{ID: "inside", V: 1, D: map[int]interface{}{0: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	data, err := FromRecord(&worldstore.Record{Key: worldstore.NewKey("heroes", "outside"), V: 1, D: blob})
	if err != nil {
		t.Fatal(err)
	}
	if v := data.ID; v != "outside" {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestCodec_Errors(t *testing.T) {
	if _, err := ToRecord("heroes", &schema.Data{V: 1}); err == nil {
		t.Fatal("error expected")
	}
	if _, err := Decode([]byte("definitely not deflate")); err == nil {
		t.Fatal("error expected")
	}
}

func TestCodec_MaxDecodedSize(t *testing.T) {
	orig := MaxDecodedSize
	defer func() { MaxDecodedSize = orig }()

	c := &Codec{Level: flate.BestSpeed}
	blob, err := c.Encode(&schema.Data{ID: "big", V: 1, D: map[int]interface{}{0: string(make([]byte, 4096))}})
	if err != nil {
		t.Fatal(err)
	}

	MaxDecodedSize = 1024
	if _, err := c.Decode(blob); err == nil {
		t.Fatal("error expected")
	}
	MaxDecodedSize = 1 << 20
	if _, err := c.Decode(blob); err != nil {
		t.Fatal(err)
	}
}
