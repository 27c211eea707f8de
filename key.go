package worldstore

import (
	"fmt"
	"net/url"
	"strings"
)

// Key identifies a record inside a collection.
type Key struct {
	Collection string
	ID         string
}

func NewKey(collection, id string) Key {
	return Key{Collection: collection, ID: id}
}

func (k Key) String() string {
	return fmt.Sprintf("/%s,%s", k.Collection, k.ID)
}

// Encode returns an opaque, url-safe representation of k usable as a cache key.
func (k Key) Encode() string {
	return url.PathEscape(k.Collection) + ":" + url.PathEscape(k.ID)
}

func (k Key) Incomplete() bool {
	return k.Collection == "" || k.ID == ""
}

func (k Key) Equal(o Key) bool {
	return k.Collection == o.Collection && k.ID == o.ID
}

// DecodeKey reverses Key.Encode.
func DecodeKey(encoded string) (Key, error) {
	parts := strings.SplitN(encoded, ":", 2)
	if len(parts) != 2 {
		return Key{}, fmt.Errorf("worldstore: malformed key %q", encoded)
	}
	coll, err := url.PathUnescape(parts[0])
	if err != nil {
		return Key{}, err
	}
	id, err := url.PathUnescape(parts[1])
	if err != nil {
		return Key{}, err
	}
	return Key{Collection: coll, ID: id}, nil
}
