package epoch

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	rootA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	rootB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func TestSet_IsAccepted(t *testing.T) {
	s := NewSet(rootA)

	assert.True(t, s.IsAccepted(rootA))
	assert.True(t, s.IsAccepted(strings.ToUpper(rootA)))
	assert.False(t, s.IsAccepted(rootB))
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Open())
}

func TestSet_SwapReplacesWholeSet(t *testing.T) {
	s := NewSet(rootA)
	s.Swap([]string{rootB, "  "})

	assert.False(t, s.IsAccepted(rootA))
	assert.True(t, s.IsAccepted(rootB))
	assert.Equal(t, 1, s.Len())
}

func TestOpenSet(t *testing.T) {
	s := NewOpenSet()
	assert.True(t, s.Open())
	assert.True(t, s.IsAccepted(rootB))

	s.Swap([]string{rootA})
	assert.False(t, s.Open())
	assert.False(t, s.IsAccepted(rootB))
}

func TestSet_ConcurrentSwapNeverPartial(t *testing.T) {
	// Each generation holds 8 roots sharing a prefix; a reader must see all 8
	// of one generation.
	gen := func(g int) []string {
		roots := make([]string, 8)
		for i := range roots {
			roots[i] = fmt.Sprintf("%02x%062x", g%256, i)
		}
		return roots
	}
	s := NewSet(gen(0)...)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for g := 1; g < 200; g++ {
			s.Swap(gen(g))
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.current.Load()
				assert.Len(t, snap.roots, 8)
				var prefix string
				for root := range snap.roots {
					if prefix == "" {
						prefix = root[:2]
					}
					assert.Equal(t, prefix, root[:2])
				}
			}
		}()
	}
	wg.Wait()
}
