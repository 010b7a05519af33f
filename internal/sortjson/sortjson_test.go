package sortjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortOrdersNestedKeys(t *testing.T) {
	t.Parallel()

	src := []byte(`{"b": 1, "a": {"z": true, "m": null}}`)
	got, err := Sort(src)
	require.NoError(t, err)

	want := `{
  "a": {
    "m": null,
    "z": true
  },
  "b": 1
}
`
	assert.Equal(t, want, string(got))
}

func TestSortPreservesArrayOrder(t *testing.T) {
	t.Parallel()

	src := []byte(`{"list": [3, 1, 2], "empty": [], "obj": {}}`)
	got, err := Sort(src)
	require.NoError(t, err)

	want := `{
  "empty": [],
  "list": [
    3,
    1,
    2
  ],
  "obj": {}
}
`
	assert.Equal(t, want, string(got))
}

func TestSortPreservesNumberText(t *testing.T) {
	t.Parallel()

	got, err := Sort([]byte(`{"n": 0.30000000000000004, "m": 1e9}`))
	require.NoError(t, err)
	assert.Contains(t, string(got), "0.30000000000000004")
	assert.Contains(t, string(got), "1e9")
}

func TestSortIdempotent(t *testing.T) {
	t.Parallel()

	src := []byte(`{"c": [1, {"y": 2, "x": 3}], "a": "v", "b": {"k": false}}`)
	once, err := Sort(src)
	require.NoError(t, err)
	twice, err := Sort(once)
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))
}

func TestSortRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Sort([]byte(`{"a": `))
	require.Error(t, err)

	_, err = Sort([]byte(`{"a": 1} trailing`))
	require.Error(t, err)
}
