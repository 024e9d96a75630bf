package schema

// Record is an ordered mapping from field name to Value.
//
// Per the "Runtime collection order" design note, a Record never exposes
// iteration over a Go map — fields are stored in insertion order in a slice
// and looked up through an index, so canonical serialization (internal/canonical)
// never depends on map iteration order.
type Record struct {
	order  []string
	values map[string]Value
}

// NewRecord returns an empty, ready-to-use Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set assigns field to value, appending field to the insertion order the
// first time it is seen and overwriting in place on subsequent calls.
func (r *Record) Set(field string, value Value) {
	if _, ok := r.values[field]; !ok {
		r.order = append(r.order, field)
	}

	r.values[field] = value
}

// Get returns the value stored for field, or Null with ok=false if the field
// was never set.
func (r *Record) Get(field string) (Value, bool) {
	v, ok := r.values[field]
	return v, ok
}

// GetOrNull returns the value stored for field, or Null if unset.
func (r *Record) GetOrNull(field string) Value {
	v, ok := r.values[field]
	if !ok {
		return Null()
	}

	return v
}

// Fields returns field names in insertion order. The returned slice must
// not be mutated by callers.
func (r *Record) Fields() []string {
	return r.order
}

// Len returns the number of fields set on the record.
func (r *Record) Len() int {
	return len(r.order)
}

// Clone returns a deep-enough copy of the record (values are immutable
// value types, so a shallow copy of the backing structures suffices).
func (r *Record) Clone() *Record {
	clone := &Record{
		order:  make([]string, len(r.order)),
		values: make(map[string]Value, len(r.values)),
	}

	copy(clone.order, r.order)

	for k, v := range r.values {
		clone.values[k] = v
	}

	return clone
}

// Project returns a new Record containing exactly the given columns, in the
// given order. Columns absent from r are set to Null. This is used by the
// writer (spec §4.4 "Column order enforcement") immediately before Load.
func (r *Record) Project(columns []string) *Record {
	projected := NewRecord()
	for _, col := range columns {
		projected.Set(col, r.GetOrNull(col))
	}

	return projected
}

// Dataset is an ordered sequence of records. Column order is not carried on
// the Dataset itself — it is always derived from the owning Schema, per
// spec §3 "Dataset" invariant.
type Dataset struct {
	Records []*Record
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{}
}

// Append adds a record to the dataset.
func (d *Dataset) Append(r *Record) {
	d.Records = append(d.Records, r)
}

// Len returns the number of records in the dataset.
func (d *Dataset) Len() int {
	return len(d.Records)
}
