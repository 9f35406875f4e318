// Package multiqueue implements a fixed-level array of FIFO queues with
// level-priority dequeue, as used by the scheduler's ready queue (level 0 =
// SHORT, level 1 = LONG).
package multiqueue

import (
	"fmt"

	"github.com/barrycburton/Minisystem-Message-Passing/container/fifo"
)

// Queue holds N independently-ordered FIFO levels, indexed 0..N-1.
type Queue struct {
	levels []fifo.Queue
}

// New returns a Queue with the given number of levels, each initially empty.
func New(levels int) *Queue {
	if levels <= 0 {
		panic("multiqueue: levels must be positive")
	}
	return &Queue{levels: make([]fifo.Queue, levels)}
}

// Levels returns the number of levels this queue was constructed with.
func (q *Queue) Levels() int {
	return len(q.levels)
}

func (q *Queue) checkLevel(level int) {
	if level < 0 || level >= len(q.levels) {
		panic(fmt.Sprintf("multiqueue: level %d out of range [0,%d)", level, len(q.levels)))
	}
}

// Enqueue pushes item onto the tail of the given level's queue.
func (q *Queue) Enqueue(level int, item any) {
	q.checkLevel(level)
	q.levels[level].Append(item)
}

// Dequeue scans levels starting at startLevel and wrapping up to the
// highest-numbered level (never wrapping back around to lower levels),
// returning the first item found at the head of the first non-empty level
// scanned. Returns false if every level from startLevel upward is empty.
func (q *Queue) Dequeue(startLevel int) (any, bool) {
	q.checkLevel(startLevel)
	for lvl := startLevel; lvl < len(q.levels); lvl++ {
		if v, ok := q.levels[lvl].PopFront(); ok {
			return v, true
		}
	}
	return nil, false
}

// Peek is the non-destructive form of Dequeue.
func (q *Queue) Peek(startLevel int) (any, bool) {
	q.checkLevel(startLevel)
	for lvl := startLevel; lvl < len(q.levels); lvl++ {
		if v, ok := q.levels[lvl].PeekFront(); ok {
			return v, true
		}
	}
	return nil, false
}

// LevelLen returns the number of items queued at exactly the given level.
func (q *Queue) LevelLen(level int) int {
	q.checkLevel(level)
	return q.levels[level].Len()
}

// IterateLevel walks the given level's queue head-to-tail, stopping early
// if visit returns -1. Used by the scheduler's aging pass to find and
// promote starved LONG-level threads without dequeuing them.
func (q *Queue) IterateLevel(level int, visit fifo.Visitor) {
	q.checkLevel(level)
	q.levels[level].Iterate(visit)
}

// RemoveFromLevel deletes every occurrence of value from the given level,
// used when promoting a thread found during aging: it is removed from LONG
// and the caller re-enqueues it at SHORT.
func (q *Queue) RemoveFromLevel(level int, value any) bool {
	q.checkLevel(level)
	return q.levels[level].DeleteValue(value)
}

// Len returns the total number of items queued across all levels.
func (q *Queue) Len() int {
	total := 0
	for i := range q.levels {
		total += q.levels[i].Len()
	}
	return total
}
