package testsuite

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.mercari.io/worldstore"
)

func createRecords(t *testing.T, ctx context.Context, client worldstore.Client, collection string, n int) {
	t.Helper()

	for i := 1; i <= n; i++ {
		rec := &worldstore.Record{
			Key: worldstore.NewKey(collection, fmt.Sprintf("id%02d", i)),
			V:   i,
			D:   []byte(fmt.Sprintf("Data%d", i)),
		}
		if err := client.Create(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
}

func ids(recs []*worldstore.Record) string {
	list := make([]string, 0, len(recs))
	for _, rec := range recs {
		list = append(list, rec.Key.ID)
	}
	return strings.Join(list, ",")
}

func queryByIDs(t *testing.T, ctx context.Context, client worldstore.Client) {
	createRecords(t, ctx, client, "Data", 5)

	recs, err := client.Find(ctx, &worldstore.Query{
		Collection: "Data",
		IDs:        []string{"id04", "id02", "missing"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v := ids(recs); v != "id02,id04" {
		t.Errorf("unexpected: %v", v)
	}
	if v := string(recs[1].D); v != "Data4" {
		t.Errorf("unexpected: %v", v)
	}
}

func queryPaging(t *testing.T, ctx context.Context, client worldstore.Client) {
	createRecords(t, ctx, client, "Data", 5)

	var pages []string
	startAfter := ""
	for {
		recs, err := client.Find(ctx, &worldstore.Query{
			Collection: "Data",
			StartAfter: startAfter,
			Limit:      2,
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) == 0 {
			break
		}
		pages = append(pages, ids(recs))
		startAfter = recs[len(recs)-1].Key.ID
	}

	if v := strings.Join(pages, "|"); v != "id01,id02|id03,id04|id05" {
		t.Errorf("unexpected: %v", v)
	}
}

func queryVersionBelow(t *testing.T, ctx context.Context, client worldstore.Client) {
	createRecords(t, ctx, client, "Data", 5)

	recs, err := client.Find(ctx, &worldstore.Query{
		Collection:   "Data",
		VersionBelow: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if v := ids(recs); v != "id01,id02,id03" {
		t.Errorf("unexpected: %v", v)
	}

	recs, err = client.Find(ctx, &worldstore.Query{
		Collection:   "Data",
		VersionBelow: 4,
		StartAfter:   "id01",
		Limit:        1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if v := ids(recs); v != "id02" {
		t.Errorf("unexpected: %v", v)
	}
}
