package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue[int]()
	for i := 0; i < 10; i++ {
		q.Put(i)
	}
	q.Close()

	var got []int
	for item := range q.Items() {
		got = append(got, item)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

// Put must never block on a consumer that is not reading.
func TestQueue_PutDoesNotBlockWithoutConsumer(t *testing.T) {
	t.Parallel()

	q := NewQueue[int]()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			q.Put(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer blocked on an unread queue")
	}

	q.Close()
	count := 0
	for range q.Items() {
		count++
	}
	assert.Equal(t, 1000, count)
}

func TestQueue_CloseDrainsBuffered(t *testing.T) {
	t.Parallel()

	q := NewQueue[string]()
	q.Put("a")
	q.Put("b")
	q.Close()

	a, open := <-q.Items()
	require.True(t, open)
	assert.Equal(t, "a", a)

	b, open := <-q.Items()
	require.True(t, open)
	assert.Equal(t, "b", b)

	_, open = <-q.Items()
	assert.False(t, open)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	t.Parallel()

	q := NewQueue[int]()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Put(i)
			}
		}()
	}
	wg.Wait()
	q.Close()

	count := 0
	for range q.Items() {
		count++
	}
	assert.Equal(t, 400, count)
}
