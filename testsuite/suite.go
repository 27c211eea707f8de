// Package testsuite is the conformance suite every worldstore.Backend
// must pass. Backend packages run it from their own tests.
package testsuite

import (
	"context"
	"testing"

	"go.mercari.io/worldstore"
)

// Test represents a test function for a worldstore client.
type Test func(t *testing.T, ctx context.Context, client worldstore.Client)

// TestSuite contains all the test cases that this package provides.
var TestSuite = map[string]Test{
	"Record_CreateAndFindByID":       recordCreateAndFindByID,
	"Record_CreateExists":            recordCreateExists,
	"Record_FindByIDNotFound":        recordFindByIDNotFound,
	"Record_UpdateWithoutUpsert":     recordUpdateWithoutUpsert,
	"Record_UpdateWithUpsert":        recordUpdateWithUpsert,
	"Record_Exists":                  recordExists,
	"Record_Delete":                  recordDelete,
	"Record_BinarySafe":              recordBinarySafe,
	"Record_CollectionIsolation":     recordCollectionIsolation,
	"Query_ByIDs":                    queryByIDs,
	"Query_Paging":                   queryPaging,
	"Query_VersionBelow":             queryVersionBelow,
	"Batch_PutGetDelete":             batchPutGetDelete,
	"Batch_GetMissing":               batchGetMissing,
	"Batch_HandlerQueuesMore":        batchHandlerQueuesMore,
	"World_PlayerRoundTrip":          worldPlayerRoundTrip,
	"World_LocationOverlayRoundTrip": worldLocationOverlayRoundTrip,
}

// MergeTestSuite into this package's TestSuite.
func MergeTestSuite(suite map[string]Test) {
	for key, spec := range suite {
		_, ok := TestSuite[key]
		if ok {
			panic("duplicate spec name")
		}
		TestSuite[key] = spec
	}
}

// Run runs every test of TestSuite. newClient returns a client over an
// empty store and a function releasing it.
func Run(t *testing.T, newClient func(t *testing.T) (worldstore.Client, func())) {
	for name, test := range TestSuite {
		t.Run(name, func(t *testing.T) {
			client, cleanUp := newClient(t)
			defer cleanUp()

			test(t, context.Background(), client)
		})
	}
}
