package registry_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/palaver/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	r := registry.New[int]()

	_, ok := r.Lookup("missing")
	assert.False(t, ok)

	r.Register("b", 1)
	r.Register("a", 2)
	r.Register("b", 3)

	v, ok := r.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, 3, v, "last registration wins")
	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := registry.New[string]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Register(fmt.Sprintf("k%d", i), "v")
		}(i)
		go func(i int) {
			defer wg.Done()
			r.Lookup(fmt.Sprintf("k%d", i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}
