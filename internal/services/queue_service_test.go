package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchQueue_Enqueue_Idempotent(t *testing.T) {
	q := NewMatchQueue()

	assert.True(t, q.Enqueue("user-1"))
	assert.False(t, q.Enqueue("user-1"))
	assert.Equal(t, 1, q.Len())
}

func TestMatchQueue_TryDequeuePair_OldestFirst(t *testing.T) {
	q := NewMatchQueue()
	q.Enqueue("user-1")
	q.Enqueue("user-2")
	q.Enqueue("user-3")

	first, second, ok := q.TryDequeuePair()
	require.True(t, ok)
	assert.Equal(t, "user-1", first)
	assert.Equal(t, "user-2", second)
	assert.Equal(t, 1, q.Len())
}

func TestMatchQueue_TryDequeuePair_NotEnoughWaiting(t *testing.T) {
	q := NewMatchQueue()
	q.Enqueue("user-1")

	_, _, ok := q.TryDequeuePair()
	assert.False(t, ok)
	assert.Equal(t, 1, q.Len())
}

func TestMatchQueue_Remove(t *testing.T) {
	q := NewMatchQueue()
	q.Enqueue("user-1")
	q.Enqueue("user-2")

	assert.True(t, q.Remove("user-1"))
	assert.False(t, q.Remove("user-1"))
	assert.Equal(t, 1, q.Len())

	// user-2 is now the head
	first, _, ok := q.TryDequeuePair()
	assert.False(t, ok)
	assert.Empty(t, first)
}

func TestMatchQueue_Remove_OwnershipRace(t *testing.T) {
	// Only one of many concurrent removers may win the entry.
	q := NewMatchQueue()
	q.Enqueue("user-1")

	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q.Remove("user-1") {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestMatchQueue_ConcurrentEnqueueDequeue(t *testing.T) {
	q := NewMatchQueue()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Enqueue(fmt.Sprintf("user-%d", n))
		}(i)
	}
	wg.Wait()

	require.Equal(t, 100, q.Len())

	paired := 0
	for {
		_, _, ok := q.TryDequeuePair()
		if !ok {
			break
		}
		paired++
	}
	assert.Equal(t, 50, paired)
	assert.Equal(t, 0, q.Len())
}

func TestMatchQueue_Snapshot_IsCopy(t *testing.T) {
	q := NewMatchQueue()
	q.Enqueue("user-1")
	q.Enqueue("user-2")

	snapshot := q.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "user-1", snapshot[0].UserID)

	q.Remove("user-1")
	assert.Len(t, snapshot, 2)
}

func TestMatchQueue_OldestWait_Empty(t *testing.T) {
	q := NewMatchQueue()
	assert.Zero(t, q.OldestWait())
}
