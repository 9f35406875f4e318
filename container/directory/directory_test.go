package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetOverwrite(t *testing.T) {
	d := New()
	d.Add(1, "a")
	d.Add(2, "b")
	d.Add(1, "a-overwritten")

	v, ok := d.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a-overwritten", v)
	assert.Equal(t, 2, d.Len())
}

func TestGetMissing(t *testing.T) {
	d := New()
	_, ok := d.Get(42)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	d := New()
	d.Add(1, "a")
	assert.True(t, d.Remove(1))
	assert.False(t, d.Remove(1))
	_, ok := d.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, d.Len())
}

func TestResizeKeepsAllEntries(t *testing.T) {
	d := New()
	const n = 400 // forces several resizes past the 128-bucket default
	for i := uint32(0); i < n; i++ {
		d.Add(i, i*10)
	}
	assert.Equal(t, n, uint32(d.Len()))
	for i := uint32(0); i < n; i++ {
		v, ok := d.Get(i)
		require.True(t, ok)
		assert.Equal(t, i*10, v)
	}
}

func TestIterateVisitsEveryEntry(t *testing.T) {
	d := New()
	want := map[uint32]any{1: "a", 2: "b", 3: "c"}
	for k, v := range want {
		d.Add(k, v)
	}

	got := map[uint32]any{}
	d.Iterate(func(k uint32, v any, _ uint32, _ any) int {
		got[k] = v
		return 0
	}, 0, nil)

	assert.Equal(t, want, got)
}

func TestIterateAbortsOnNegativeOne(t *testing.T) {
	d := New()
	for i := uint32(0); i < 10; i++ {
		d.Add(i, i)
	}

	visited := 0
	d.Iterate(func(k uint32, v any, _ uint32, _ any) int {
		visited++
		return -1
	}, 0, nil)

	assert.Equal(t, 1, visited)
}

func TestIteratePassesContext(t *testing.T) {
	d := New()
	d.Add(1, "a")

	var gotCtxKey uint32
	var gotCtxVal any
	d.Iterate(func(k uint32, v any, ctxKey uint32, ctxValue any) int {
		gotCtxKey = ctxKey
		gotCtxVal = ctxValue
		return 0
	}, 99, "context-value")

	assert.Equal(t, uint32(99), gotCtxKey)
	assert.Equal(t, "context-value", gotCtxVal)
}
