package typeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	set := NewSet("u1", "u2")
	set.Insert("u2", "u3")
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Contain("u1", "u3"))
	assert.False(t, set.Contain("u1", "u4"))

	assert.Equal(t, []string{"u3", "u1"}, set.Filter([]string{"u3", "u4", "u1"}))

	other := NewSet("u3", "u4")
	assert.ElementsMatch(t, []string{"u3"}, set.Intersection(other).Collect())
	assert.ElementsMatch(t, []string{"u1", "u2", "u3", "u4"}, set.Union(other).Collect())
	assert.ElementsMatch(t, []string{"u1", "u2"}, set.Complement(other).Collect())

	clone := set.Clone()
	set.Clear()
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 3, clone.Len())
}

func TestConcurrentSet(t *testing.T) {
	set := NewConcurrentSet[string]()
	assert.True(t, set.Insert("u1"))
	assert.False(t, set.Insert("u1"))
	set.Upsert("u2", "u3")
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.TryRemove("u2"))
	assert.False(t, set.TryRemove("u2"))
	set.Remove("u3")
	assert.Equal(t, []string{"u1"}, set.Collect())
}
