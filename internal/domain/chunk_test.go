package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitKey(t *testing.T) {
	t.Run("integer neighbors land on half", func(t *testing.T) {
		assert.Equal(t, 0.5, SplitKey(0, 1))
		assert.Equal(t, 2.5, SplitKey(2, 3))
	})

	t.Run("repeated splits halve the gap", func(t *testing.T) {
		first := SplitKey(0, 1)
		second := SplitKey(first, 1)
		assert.Equal(t, 0.5, first)
		assert.Equal(t, 0.75, second)
	})

	t.Run("key lies strictly between neighbors", func(t *testing.T) {
		key := SplitKey(1.5, 2)
		assert.Greater(t, key, 1.5)
		assert.Less(t, key, 2.0)
	})
}
