package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceGenerator_Format(t *testing.T) {
	gen, err := NewReferenceGenerator(1)
	require.NoError(t, err)

	now := time.UnixMilli(1700000000000)
	ref := gen.Generate("Jane Doe", now)

	assert.True(t, strings.HasPrefix(ref, "tx-jane-doe-1700000000000-"), ref)
}

func TestReferenceGenerator_SameNameSameMillisecondIsUnique(t *testing.T) {
	gen, err := NewReferenceGenerator(7)
	require.NoError(t, err)

	now := time.UnixMilli(1700000000000)
	const n = 500

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref := gen.Generate("Anonymous", now)
			mu.Lock()
			seen[ref] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

func TestReferenceGenerator_RejectsOutOfRangeNode(t *testing.T) {
	_, err := NewReferenceGenerator(4096)
	assert.Error(t, err)
}

func TestSlugify(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Alice", "alice"},
		{"spaces collapse", "Jane   Q  Public", "jane-q-public"},
		{"punctuation trimmed", "--O'Brien!!", "o-brien"},
		{"non latin falls back", "Ωμέγα", "anonymous"},
		{"empty", "", "anonymous"},
		{"capped", strings.Repeat("a", 80), strings.Repeat("a", maxReferenceSlug)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, slugify(tc.in))
		})
	}
}
