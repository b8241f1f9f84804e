package xqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFOOrder(t *testing.T) {
	q := New[int](4)
	for i := 0; i < 4; i++ {
		assert.True(t, q.Push(i))
	}
	for i := 0; i < 4; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestPushBlocksWhenFullUntilPop(t *testing.T) {
	q := New[int](1)
	require.True(t, q.Push(1))

	pushed := make(chan bool, 1)
	go func() {
		pushed <- q.Push(2)
	}()

	select {
	case <-pushed:
		t.Fatal("Push should block while queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	select {
	case ok := <-pushed:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Push should have unblocked after Pop freed capacity")
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New[string](2)
	result := make(chan string, 1)
	go func() {
		v, ok := q.Pop()
		if ok {
			result <- v
		} else {
			result <- "<closed>"
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push("value")

	select {
	case v := <-result:
		assert.Equal(t, "value", v)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned")
	}
}

func TestCloseUnblocksWaitingPushAndPop(t *testing.T) {
	q := New[int](1)
	require.True(t, q.Push(1)) // fills capacity

	pushResult := make(chan bool, 1)
	go func() { pushResult <- q.Push(2) }()

	// A Pop on q would free capacity and let the blocked Push through
	// before Close, so the waiting Pop blocks on a second, empty queue.
	empty := New[int](1)
	popDone := make(chan struct{})
	go func() {
		if _, ok := empty.Pop(); !ok {
			close(popDone)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()
	empty.Close()

	select {
	case ok := <-pushResult:
		assert.False(t, ok, "Push on a closed queue must report false")
	case <-time.After(time.Second):
		t.Fatal("Push never unblocked on Close")
	}

	select {
	case <-popDone:
	case <-time.After(time.Second):
		t.Fatal("Pop never unblocked on Close")
	}
}

func TestTryPopNonBlocking(t *testing.T) {
	q := New[int](4)
	_, ok := q.TryPop()
	assert.False(t, ok)

	q.Push(7)
	v, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestUnboundedQueueNeverBlocksOnPush(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 1000; i++ {
		assert.True(t, q.Push(i))
	}
	assert.Equal(t, 1000, q.Len())
}

func TestConcurrentProducersConsumers(t *testing.T) {
	q := New[int](8)
	const n = 200

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Push(i)
		}
		q.Close()
	}()

	received := 0
	go func() {
		defer wg.Done()
		for {
			_, ok := q.Pop()
			if !ok {
				return
			}
			received++
		}
	}()

	wg.Wait()
	assert.Equal(t, n, received)
}
