package multiqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDequeueScansFromStartLevelUpward(t *testing.T) {
	q := New(2)
	q.Enqueue(1, "long-item")
	q.Enqueue(0, "short-item")

	v, ok := q.Dequeue(0)
	require.True(t, ok)
	assert.Equal(t, "short-item", v)

	v, ok = q.Dequeue(0)
	require.True(t, ok)
	assert.Equal(t, "long-item", v)
}

func TestDequeueStartingAboveLevelZeroNeverReturnsLowerLevel(t *testing.T) {
	q := New(2)
	q.Enqueue(0, "short-item")

	_, ok := q.Dequeue(1)
	assert.False(t, ok)
}

func TestFIFOOrderWithinLevel(t *testing.T) {
	q := New(1)
	q.Enqueue(0, "a")
	q.Enqueue(0, "b")
	q.Enqueue(0, "c")

	var got []string
	for q.Len() > 0 {
		v, _ := q.Dequeue(0)
		got = append(got, v.(string))
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestLenTotalsAcrossLevels(t *testing.T) {
	q := New(2)
	q.Enqueue(0, "a")
	q.Enqueue(1, "b")
	q.Enqueue(1, "c")
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 1, q.LevelLen(0))
	assert.Equal(t, 2, q.LevelLen(1))
}

func TestRemoveFromLevel(t *testing.T) {
	q := New(2)
	q.Enqueue(1, "x")
	q.Enqueue(1, "y")

	assert.True(t, q.RemoveFromLevel(1, "x"))
	assert.Equal(t, 1, q.LevelLen(1))
}

func TestPeekNonDestructive(t *testing.T) {
	q := New(1)
	q.Enqueue(0, "a")
	v, ok := q.Peek(0)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, q.LevelLen(0))
}
