package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("produces unique ids", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			id := New().String()
			require.False(t, seen[id], "duplicate id: %s", id)
			seen[id] = true
		}
	})

	t.Run("ids are sortable by creation order", func(t *testing.T) {
		prev := New()
		for i := 0; i < 100; i++ {
			next := New()
			assert.Less(t, prev.String(), next.String())
			prev = next
		}
	})
}

func TestParse(t *testing.T) {
	id := New()

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = Parse("not-a-ulid")
	assert.Error(t, err)

	assert.Panics(t, func() { MustParse("not-a-ulid") })
	assert.NotPanics(t, func() { MustParse(id.String()) })
}
