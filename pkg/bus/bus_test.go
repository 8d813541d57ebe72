package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triple [3]float64

func TestBus_ReadBeforeWriteReturnsDefault(t *testing.T) {
	b := New(triple{1, 2, 3})

	assert.Equal(t, triple{1, 2, 3}, b.Read())
	assert.Equal(t, uint64(0), b.Version())
}

func TestBus_ReadIsIdempotent(t *testing.T) {
	b := New(0.0)
	b.Write(0.5)

	first := b.Read()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, b.Read())
	}
	assert.Equal(t, uint64(1), b.Version())
}

func TestBus_LastWriteWins(t *testing.T) {
	b := New(0)
	for i := 1; i <= 5; i++ {
		b.Write(i)
	}

	v, version := b.ReadVersion()
	assert.Equal(t, 5, v)
	assert.Equal(t, uint64(5), version)
}

// Every written triple has all three elements equal. A torn read would show
// mixed elements.
func TestBus_NoTornReads(t *testing.T) {
	b := New(triple{-1, -1, -1})

	valid := func(v float64) bool {
		if v == -1 {
			return true
		}
		w, j := int(v)/1000, int(v)%1000
		return v == float64(int(v)) && w >= 0 && w < 8 && j < 500
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				v := float64(w*1000 + j)
				b.Write(triple{v, v, v})
			}
		}(w)
	}

	errs := make(chan string, 16)
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 2000; j++ {
				got := b.Read()
				if got[0] != got[1] || got[1] != got[2] {
					errs <- "torn read"
					return
				}
				if !valid(got[0]) {
					errs <- "read a value that was never written"
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
	assert.Equal(t, uint64(8*500), b.Version())
}

// A reader that holds the read lock must not stop another reader.
func TestBus_ConcurrentReadersDoNotBlock(t *testing.T) {
	b := New(42)

	b.mu.RLock()
	defer b.mu.RUnlock()

	done := make(chan int, 1)
	go func() {
		done <- b.Read()
	}()

	select {
	case v := <-done:
		require.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("second reader blocked behind first reader")
	}
}

func TestBus_WriteWaitsForReaders(t *testing.T) {
	b := New(1)

	b.mu.RLock()
	wrote := make(chan struct{})
	go func() {
		b.Write(2)
		close(wrote)
	}()

	select {
	case <-wrote:
		t.Fatal("write completed while a read was in progress")
	case <-time.After(20 * time.Millisecond):
	}
	b.mu.RUnlock()

	select {
	case <-wrote:
	case <-time.After(time.Second):
		t.Fatal("write never completed")
	}
	assert.Equal(t, 2, b.Read())
}
