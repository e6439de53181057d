package search

// Field names of the fixed schema.
const (
	FieldPath    = "path"
	FieldContent = "content"
)

// FieldKind says how a field is indexed.
type FieldKind string

const (
	// KindID fields are indexed as a single verbatim value.
	KindID FieldKind = "id"
	// KindText fields are analyzed into terms.
	KindText FieldKind = "text"
)

// FieldSpec describes one schema field.
type FieldSpec struct {
	Name   string    `cbor:"name"`
	Kind   FieldKind `cbor:"kind"`
	Stored bool      `cbor:"stored"`
	Unique bool      `cbor:"unique"`
}

// Schema is the ordered field list persisted in every table of contents.
type Schema struct {
	Fields []FieldSpec `cbor:"fields"`
}

// DefaultSchema returns the only schema this engine writes: a stored,
// unique path and an unstored text content field.
func DefaultSchema() Schema {
	return Schema{Fields: []FieldSpec{
		{Name: FieldPath, Kind: KindID, Stored: true, Unique: true},
		{Name: FieldContent, Kind: KindText},
	}}
}

// Equal reports whether both schemas declare the same fields in the same
// order.
func (s Schema) Equal(other Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}
