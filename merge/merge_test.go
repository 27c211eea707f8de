package merge

import (
	"reflect"
	"testing"
	"time"
)

type stats struct {
	HP int
	MP int
}

type sword struct {
	Damage int
	Rune   *runeStone
}

type runeStone struct {
	Glyph string
}

type room struct {
	Name     string
	Stats    *stats
	Light    stats
	Items    []interface{}
	Guards   []stats
	Relic    interface{}
	Props    map[string]interface{}
	Tags     []string
	OpenedAt time.Time
	Locked   bool
}

func TestHard_KeepsUntouchedNestedFields(t *testing.T) {
	dst := &room{Stats: &stats{HP: 10, MP: 20}, Light: stats{HP: 1, MP: 2}}

	err := Hard(dst, map[string]interface{}{
		"Stats": map[string]interface{}{"HP": int64(5)},
		"Light": map[string]interface{}{"MP": uint64(9)},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := *dst.Stats; v != (stats{HP: 5, MP: 20}) {
		t.Fatalf("unexpected: %+v", v)
	}
	if v := dst.Light; v != (stats{HP: 1, MP: 9}) {
		t.Fatalf("unexpected: %+v", v)
	}
}

func TestHard_MapOntoMap(t *testing.T) {
	dst := map[string]interface{}{
		"stats": map[string]interface{}{"hp": 10, "mp": 20},
	}

	if err := Hard(dst, map[string]interface{}{"stats": map[string]interface{}{"hp": 5}}, nil); err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"stats": map[string]interface{}{"hp": 5, "mp": 20},
	}
	if !reflect.DeepEqual(dst, want) {
		t.Fatalf("unexpected: %v", dst)
	}
}

func TestHard_ArraysWithBinding(t *testing.T) {
	dst := &room{Items: []interface{}{"stale"}}

	cm := Flat(map[string]func() interface{}{
		"Items":      func() interface{} { return &sword{} },
		"Items.Rune": func() interface{} { return &runeStone{} },
	})

	err := Hard(dst, map[string]interface{}{
		"Items": []interface{}{
			map[string]interface{}{"Damage": int64(3)},
			map[string]interface{}{"Damage": int64(7), "Rune": map[string]interface{}{"Glyph": "ᚠ"}},
		},
		"Guards": []interface{}{
			map[string]interface{}{"HP": int64(1)},
			nil,
		},
		"Tags": []interface{}{"dark", "damp"},
	}, cm)
	if err != nil {
		t.Fatal(err)
	}

	if v := len(dst.Items); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	first, ok := dst.Items[0].(*sword)
	if !ok || first.Damage != 3 || first.Rune != nil {
		t.Fatalf("unexpected: %#v", dst.Items[0])
	}
	second, ok := dst.Items[1].(*sword)
	if !ok || second.Damage != 7 || second.Rune == nil || second.Rune.Glyph != "ᚠ" {
		t.Fatalf("unexpected: %#v", dst.Items[1])
	}
	if v := dst.Guards; !reflect.DeepEqual(v, []stats{{HP: 1}, {}}) {
		t.Fatalf("unexpected: %v", v)
	}
	if v := dst.Tags; !reflect.DeepEqual(v, []string{"dark", "damp"}) {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestHard_BoundObject(t *testing.T) {
	dst := &room{}

	err := Hard(dst, map[string]interface{}{
		"Relic": map[string]interface{}{"Glyph": "x"},
		"Props": map[string]interface{}{"color": "red"},
	}, Bind("Relic", func() interface{} { return &runeStone{} }, nil))
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := dst.Relic.(*runeStone); !ok || v.Glyph != "x" {
		t.Fatalf("unexpected: %#v", dst.Relic)
	}
	if v := dst.Props["color"]; v != "red" {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestHard_UnboundInterfaceBecomesMap(t *testing.T) {
	dst := &room{}

	if err := Hard(dst, map[string]interface{}{"Relic": map[string]interface{}{"Glyph": "x"}}, nil); err != nil {
		t.Fatal(err)
	}
	if v, ok := dst.Relic.(map[string]interface{}); !ok || v["Glyph"] != "x" {
		t.Fatalf("unexpected: %#v", dst.Relic)
	}
}

func TestHard_Overwrites(t *testing.T) {
	dst := &room{Name: "Hall", Locked: true, Stats: &stats{HP: 1}}

	err := Hard(dst, map[string]interface{}{
		"Name":     "",
		"Locked":   false,
		"Stats":    nil,
		"OpenedAt": "2024-05-06T07:08:09Z",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := dst.Name; v != "" {
		t.Fatalf("unexpected: %v", v)
	}
	if v := dst.Locked; v {
		t.Fatalf("unexpected: %v", v)
	}
	if v := dst.Stats; v != nil {
		t.Fatalf("unexpected: %v", v)
	}
	if v := dst.OpenedAt; !v.Equal(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)) {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestSoft_SkipsFalsy(t *testing.T) {
	dst := &room{Name: "Hall", Locked: true, Stats: &stats{HP: 10, MP: 20}, Tags: []string{"old"}}

	err := Soft(dst, map[string]interface{}{
		"Name":   "",
		"Locked": false,
		"Tags":   []interface{}{},
		"Stats":  map[string]interface{}{"HP": 0, "MP": int64(3)},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := dst.Name; v != "Hall" {
		t.Fatalf("unexpected: %v", v)
	}
	if v := dst.Locked; !v {
		t.Fatalf("unexpected: %v", v)
	}
	if v := dst.Tags; !reflect.DeepEqual(v, []string{"old"}) {
		t.Fatalf("unexpected: %v", v)
	}
	if v := *dst.Stats; v != (stats{HP: 10, MP: 3}) {
		t.Fatalf("unexpected: %+v", v)
	}
}

func TestHard_Errors(t *testing.T) {
	if err := Hard(room{}, nil, nil); err == nil {
		t.Fatal("error expected")
	}
	if err := Hard(&room{}, map[string]interface{}{"Name": 3}, nil); err == nil {
		t.Fatal("error expected")
	}
	if err := Hard(&room{}, map[string]interface{}{"Tags": "not a list"}, nil); err == nil {
		t.Fatal("error expected")
	}
}

func TestFlat(t *testing.T) {
	cm := Flat(map[string]func() interface{}{
		"a.b": func() interface{} { return &runeStone{} },
		"a":   func() interface{} { return &sword{} },
	})
	a, ok := cm["a"]
	if !ok || a.New == nil {
		t.Fatalf("unexpected: %v", cm)
	}
	b, ok := a.Fields["b"]
	if !ok || b.New == nil {
		t.Fatalf("unexpected: %v", a.Fields)
	}
	if _, ok := b.New().(*runeStone); !ok {
		t.Fatal("unexpected binding")
	}
}

func TestHard_PickByData(t *testing.T) {
	dst := &room{}

	cm := ClassMap{"Items": {Pick: func(src map[string]interface{}) func() interface{} {
		if _, ok := src["Damage"]; ok {
			return func() interface{} { return &sword{} }
		}
		if _, ok := src["Glyph"]; ok {
			return func() interface{} { return &runeStone{} }
		}
		return nil
	}}}

	err := Hard(dst, map[string]interface{}{
		"Items": []interface{}{
			map[string]interface{}{"Glyph": "o"},
			map[string]interface{}{"Damage": 2},
		},
	}, cm)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := dst.Items[0].(*runeStone); !ok {
		t.Fatalf("unexpected: %#v", dst.Items[0])
	}
	if _, ok := dst.Items[1].(*sword); !ok {
		t.Fatalf("unexpected: %#v", dst.Items[1])
	}

	err = Hard(dst, map[string]interface{}{
		"Items": []interface{}{map[string]interface{}{"Weight": 1}},
	}, cm)
	if err == nil {
		t.Fatal("error expected")
	}
}
