package schema

// Base is embedded in entity structs to keep field ids the current code
// doesn't declare. Payloads written by newer code then survive a round trip
// through older code.
type Base struct {
	unknownFields  map[int]interface{}
	unknownVersion int
}

// UnknownFields returns the ids found in stored data but absent from the
// shape used to read it.
func (b *Base) UnknownFields() map[int]interface{} {
	return b.unknownFields
}

// UnknownVersion returns the stored version the unknown fields were read
// from.
func (b *Base) UnknownVersion() int {
	return b.unknownVersion
}

func (b *Base) setUnknownFields(m map[int]interface{}, v int) {
	b.unknownFields = m
	b.unknownVersion = v
}

type unknownHolder interface {
	UnknownFields() map[int]interface{}
	UnknownVersion() int
	setUnknownFields(m map[int]interface{}, v int)
}
