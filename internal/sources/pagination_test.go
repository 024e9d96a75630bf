package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageMeta_Done(t *testing.T) {
	next := 20
	assert.False(t, PageMeta{Next: &next}.Done())
	assert.True(t, PageMeta{Next: nil}.Done())
}

func TestParsePageMeta_PresentEnvelope(t *testing.T) {
	body := []byte(`{"page_meta":{"limit":20,"offset":0,"next":20}}`)

	meta, err := ParsePageMeta(body)
	require.NoError(t, err)

	assert.Equal(t, 20, meta.Limit)
	assert.Equal(t, 0, meta.Offset)
	require.NotNil(t, meta.Next)
	assert.Equal(t, 20, *meta.Next)
}

func TestParsePageMeta_LastPage(t *testing.T) {
	body := []byte(`{"page_meta":{"limit":20,"offset":40,"next":null}}`)

	meta, err := ParsePageMeta(body)
	require.NoError(t, err)
	assert.True(t, meta.Done())
}

func TestParsePageMeta_AbsentEnvelope(t *testing.T) {
	body := []byte(`{"results":[]}`)

	meta, err := ParsePageMeta(body)
	require.NoError(t, err)
	assert.True(t, meta.Done())
}

func TestParseCursor_Present(t *testing.T) {
	body := []byte(`{"cursor":"abc123"}`)

	cursor, err := ParseCursor(body)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, "abc123", *cursor)
}

func TestParseCursor_Absent(t *testing.T) {
	body := []byte(`{"cursor":null}`)

	cursor, err := ParseCursor(body)
	require.NoError(t, err)
	assert.Nil(t, cursor)
}
