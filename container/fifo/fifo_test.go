package fifo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendPopFrontOrder(t *testing.T) {
	var q Queue
	q.Append(1)
	q.Append(2)
	q.Append(3)

	for _, want := range []int{1, 2, 3} {
		v, ok := q.PopFront()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestPrepend(t *testing.T) {
	var q Queue
	q.Append(2)
	q.Prepend(1)
	q.Append(3)

	var got []int
	for q.Len() > 0 {
		v, _ := q.PopFront()
		got = append(got, v.(int))
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestRemoveByNode(t *testing.T) {
	var q Queue
	q.Append(1)
	mid := q.Append(2)
	q.Append(3)

	q.Remove(mid)

	var got []int
	for q.Len() > 0 {
		v, _ := q.PopFront()
		got = append(got, v.(int))
	}
	assert.Equal(t, []int{1, 3}, got)
}

func TestDeleteValueRemovesAllOccurrences(t *testing.T) {
	var q Queue
	q.Append("a")
	q.Append("b")
	q.Append("a")
	q.Append("c")

	assert.True(t, q.DeleteValue("a"))
	assert.False(t, q.DeleteValue("a"))

	var got []string
	for q.Len() > 0 {
		v, _ := q.PopFront()
		got = append(got, v.(string))
	}
	assert.Equal(t, []string{"b", "c"}, got)
}

func TestIterateAbortsOnNegativeOne(t *testing.T) {
	var q Queue
	q.Append(1)
	q.Append(2)
	q.Append(3)

	var seen []int
	q.Iterate(func(v any) int {
		seen = append(seen, v.(int))
		if v.(int) == 2 {
			return -1
		}
		return 0
	})
	assert.Equal(t, []int{1, 2}, seen)
}

func TestPeekFrontDoesNotRemove(t *testing.T) {
	var q Queue
	q.Append(1)
	v, ok := q.PeekFront()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, q.Len())
}

func TestEmptyQueue(t *testing.T) {
	var q Queue
	_, ok := q.PopFront()
	assert.False(t, ok)
	_, ok = q.PeekFront()
	assert.False(t, ok)
}
