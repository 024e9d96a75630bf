package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bioetl-io/bioetl/internal/schema"
)

func recordWith(id string, weight schema.Value) *schema.Record {
	r := schema.NewRecord()
	r.Set("id", schema.StringValue(id))
	r.Set("weight", weight)

	return r
}

func TestSortDataset_SortsByDeclaredSortKeysAscending(t *testing.T) {
	s := &schema.Schema{SortKeys: []string{"weight"}}

	ds := schema.NewDataset()
	ds.Append(recordWith("c", schema.FloatValue(30)))
	ds.Append(recordWith("a", schema.FloatValue(10)))
	ds.Append(recordWith("b", schema.FloatValue(20)))

	SortDataset(s, ds)

	var ids []string
	for _, r := range ds.Records {
		v, _ := r.Get("id")
		ids = append(ids, v.Str)
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestSortDataset_NullsSortLast(t *testing.T) {
	s := &schema.Schema{SortKeys: []string{"weight"}}

	ds := schema.NewDataset()
	ds.Append(recordWith("has-null", schema.Null()))
	ds.Append(recordWith("has-value", schema.FloatValue(5)))

	SortDataset(s, ds)

	first, _ := ds.Records[0].Get("id")
	assert.Equal(t, "has-value", first.Str)
}

func TestSortDataset_FallsBackToPrimaryKeyWhenSortKeysEmpty(t *testing.T) {
	s := &schema.Schema{PrimaryKey: "id"}

	ds := schema.NewDataset()
	ds.Append(recordWith("z", schema.Null()))
	ds.Append(recordWith("a", schema.Null()))

	SortDataset(s, ds)

	first, _ := ds.Records[0].Get("id")
	assert.Equal(t, "a", first.Str)
}

func TestSortDataset_IsStableOnTies(t *testing.T) {
	s := &schema.Schema{SortKeys: []string{"weight"}}

	ds := schema.NewDataset()
	ds.Append(recordWith("first", schema.FloatValue(1)))
	ds.Append(recordWith("second", schema.FloatValue(1)))

	SortDataset(s, ds)

	firstID, _ := ds.Records[0].Get("id")
	secondID, _ := ds.Records[1].Get("id")
	assert.Equal(t, "first", firstID.Str)
	assert.Equal(t, "second", secondID.Str)
}
