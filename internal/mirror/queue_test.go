package mirror

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_PopOrder(t *testing.T) {
	q := NewQueue([]string{"a", "b"})

	assert.Equal(t, 2, q.Total())
	assert.Equal(t, 2, q.Len())

	p, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "a", p)

	p, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "b", p)

	_, ok = q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 2, q.Total())
}

func TestQueue_DoesNotAliasInput(t *testing.T) {
	items := []string{"a", "b"}
	q := NewQueue(items)
	items[0] = "changed"

	p, _ := q.Pop()
	assert.Equal(t, "a", p)
}

func TestQueue_ConcurrentDrain(t *testing.T) {
	const n = 500

	items := make([]string, n)
	for i := range items {
		items[i] = string(rune('a'+i%26)) + "/" + string(rune('0'+i%10))
	}

	q := NewQueue(items)

	var (
		mu   sync.Mutex
		seen int
		wg   sync.WaitGroup
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				if _, ok := q.Pop(); !ok {
					return
				}

				mu.Lock()
				seen++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, n, seen)
	assert.Equal(t, 0, q.Len())
}
