package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceGuard(t *testing.T) {
	t.Parallel()

	t.Run("accepts the first frame regardless of bit", func(t *testing.T) {
		t.Parallel()
		assert.True(t, NewSequenceGuard().Accept(false))
		assert.True(t, NewSequenceGuard().Accept(true))
	})

	t.Run("rejects repeats of the accepted bit", func(t *testing.T) {
		t.Parallel()
		g := NewSequenceGuard()
		assert.True(t, g.Accept(true))
		assert.False(t, g.Accept(true))
		assert.False(t, g.Accept(true))
	})

	t.Run("accepts each flip", func(t *testing.T) {
		t.Parallel()
		g := NewSequenceGuard()
		bits := []bool{false, true, false, true}
		for _, bit := range bits {
			assert.True(t, g.Accept(bit))
		}
	})

	t.Run("alternation with retransmissions", func(t *testing.T) {
		t.Parallel()
		g := NewSequenceGuard()
		// new, retry, new, retry, retry, new
		sequence := []struct {
			bit  bool
			want bool
		}{
			{false, true},
			{false, false},
			{true, true},
			{true, false},
			{true, false},
			{false, true},
		}
		for i, step := range sequence {
			assert.Equal(t, step.want, g.Accept(step.bit), "step %d", i)
		}
	})

	t.Run("reset forgets the last bit", func(t *testing.T) {
		t.Parallel()
		g := NewSequenceGuard()
		assert.True(t, g.Accept(true))
		g.Reset()
		assert.True(t, g.Accept(true))
	})
}
