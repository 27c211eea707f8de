package storagecache

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.mercari.io/worldstore"
)

// entry is a cached record. The key is kept to catch entries found under
// another key.
type entry struct {
	_   struct{} `cbor:",toarray"`
	Key string
	V   int
	D   []byte
}

// Marshal encodes rec for storages keeping bytes.
func Marshal(rec *worldstore.Record) ([]byte, error) {
	return cbor.Marshal(&entry{Key: rec.Key.Encode(), V: rec.V, D: rec.D})
}

// Unmarshal decodes the bytes cached under key.
func Unmarshal(key worldstore.Key, b []byte) (*worldstore.Record, error) {
	var e entry
	if err := cbor.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	if e.Key != key.Encode() {
		return nil, fmt.Errorf("storagecache: entry of %s cached under %s", e.Key, key.Encode())
	}
	return &worldstore.Record{Key: key, V: e.V, D: e.D}, nil
}
