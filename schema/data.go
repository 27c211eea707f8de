package schema

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Data is the compact, version-tagged form of an entity.
//
// Values in D are whatever the field Type produced: plain values, *Data for
// nested classes and []interface{} for arrays. After a round trip through
// storage they are cbor.RawMessage until a Type decodes them.
type Data struct {
	ID string              `cbor:"_id,omitempty"`
	V  int                 `cbor:"v"`
	D  map[int]interface{} `cbor:"d"`
}

type wireData struct {
	ID string                  `cbor:"_id,omitempty"`
	V  int                     `cbor:"v"`
	D  map[int]cbor.RawMessage `cbor:"d"`
}

var (
	valueEncMode cbor.EncMode
	valueDecMode cbor.DecMode
)

func init() {
	var err error
	valueEncMode, err = cbor.EncOptions{
		Sort: cbor.SortCoreDeterministic,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	valueDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// convertValue stores raw into dst, going through CBOR when raw is not
// directly assignable.
func convertValue(raw interface{}, dst reflect.Value) error {
	if raw == nil {
		return nil
	}
	if msg, ok := raw.(cbor.RawMessage); ok {
		return valueDecMode.Unmarshal(msg, dst.Addr().Interface())
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}
	if isNumber(rv.Kind()) && isNumber(dst.Kind()) {
		dst.Set(rv.Convert(dst.Type()))
		return nil
	}

	b, err := valueEncMode.Marshal(raw)
	if err != nil {
		return err
	}
	return valueDecMode.Unmarshal(b, dst.Addr().Interface())
}

// plainValue turns raw into plain Go data (maps, slices, scalars).
func plainValue(raw interface{}) (interface{}, error) {
	msg, ok := raw.(cbor.RawMessage)
	if !ok {
		return raw, nil
	}
	var v interface{}
	if err := valueDecMode.Unmarshal(msg, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// asData interprets raw as nested serialized data.
func asData(raw interface{}) (*Data, error) {
	switch v := raw.(type) {
	case *Data:
		return v, nil
	case Data:
		return &v, nil
	case cbor.RawMessage:
		return unmarshalData(v)
	case nil:
		return nil, fmt.Errorf("schema: nil nested data")
	}

	b, err := valueEncMode.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return unmarshalData(b)
}

func unmarshalData(b []byte) (*Data, error) {
	var w wireData
	if err := valueDecMode.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return w.data(), nil
}

func (w *wireData) data() *Data {
	d := &Data{ID: w.ID, V: w.V, D: make(map[int]interface{}, len(w.D))}
	for id, msg := range w.D {
		d.D[id] = msg
	}
	return d
}

// asList interprets raw as an encoded array.
func asList(raw interface{}) ([]interface{}, error) {
	switch v := raw.(type) {
	case []interface{}:
		return v, nil
	case cbor.RawMessage:
		var msgs []cbor.RawMessage
		if err := valueDecMode.Unmarshal(v, &msgs); err != nil {
			return nil, err
		}
		list := make([]interface{}, len(msgs))
		for i, msg := range msgs {
			if isCBORNull(msg) {
				continue
			}
			list[i] = msg
		}
		return list, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("schema: expected array, got %T", raw)
	}
	list := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		list[i] = rv.Index(i).Interface()
	}
	return list, nil
}

func isCBORNull(msg cbor.RawMessage) bool {
	return len(msg) == 1 && (msg[0] == 0xf6 || msg[0] == 0xf7)
}

// UnmarshalData decodes a CBOR encoded Data, leaving field values raw.
func UnmarshalData(b []byte) (*Data, error) {
	return unmarshalData(b)
}
