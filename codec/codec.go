// Package codec turns schema.Data into the compact blob kept in Record.D:
// canonical CBOR, compressed with deflate.
package codec

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/schema"
)

// MaxDecodedSize caps the inflated size of a single blob.
var MaxDecodedSize int64 = 16 << 20

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort: cbor.SortCoreDeterministic,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(err)
	}
}

// Codec holds the compression level. The zero value uses flate.DefaultCompression.
type Codec struct {
	Level int

	writers sync.Pool
}

// Default is the Codec used by the package level functions.
var Default = &Codec{Level: flate.DefaultCompression}

func Encode(data *schema.Data) ([]byte, error) { return Default.Encode(data) }

func Decode(blob []byte) (*schema.Data, error) { return Default.Decode(blob) }

func ToRecord(collection string, data *schema.Data) (*worldstore.Record, error) {
	return Default.ToRecord(collection, data)
}

func FromRecord(rec *worldstore.Record) (*schema.Data, error) { return Default.FromRecord(rec) }

func (c *Codec) level() int {
	if c.Level == 0 {
		return flate.DefaultCompression
	}
	return c.Level
}

func (c *Codec) writer(w io.Writer) (*flate.Writer, error) {
	if fw, ok := c.writers.Get().(*flate.Writer); ok {
		fw.Reset(w)
		return fw, nil
	}
	return flate.NewWriter(w, c.level())
}

// Encode packs data into a compressed blob.
func (c *Codec) Encode(data *schema.Data) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("codec: nil data")
	}
	b, err := encMode.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}

	var buf bytes.Buffer
	fw, err := c.writer(&buf)
	if err != nil {
		return nil, fmt.Errorf("codec: deflate: %w", err)
	}
	if _, err := fw.Write(b); err != nil {
		return nil, fmt.Errorf("codec: deflate: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("codec: deflate: %w", err)
	}
	c.writers.Put(fw)

	return buf.Bytes(), nil
}

// Decode reverses Encode. Field values of the result stay raw until the
// owning class decodes them.
func (c *Codec) Decode(blob []byte) (*schema.Data, error) {
	fr := flate.NewReader(bytes.NewReader(blob))
	defer fr.Close()

	b, err := io.ReadAll(io.LimitReader(fr, MaxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("codec: inflate: %w", err)
	}
	if int64(len(b)) > MaxDecodedSize {
		return nil, fmt.Errorf("codec: inflated blob exceeds %d bytes", MaxDecodedSize)
	}

	data, err := schema.UnmarshalData(b)
	if err != nil {
		return nil, fmt.Errorf("codec: unmarshal: %w", err)
	}
	return data, nil
}

// ToRecord encodes data as the record stored under collection.
func (c *Codec) ToRecord(collection string, data *schema.Data) (*worldstore.Record, error) {
	if data == nil || data.ID == "" {
		return nil, fmt.Errorf("codec: data without id can't become a record")
	}
	blob, err := c.Encode(data)
	if err != nil {
		return nil, err
	}
	return &worldstore.Record{
		Key: worldstore.NewKey(collection, data.ID),
		V:   data.V,
		D:   blob,
	}, nil
}

// FromRecord decodes rec. The record key wins over an id inside the blob.
func (c *Codec) FromRecord(rec *worldstore.Record) (*schema.Data, error) {
	data, err := c.Decode(rec.D)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Key.String(), err)
	}
	data.ID = rec.Key.ID
	return data, nil
}
