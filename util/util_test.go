package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG(t *testing.T) {
	t.Run("SeededSequencesMatch", func(t *testing.T) {
		a := NewRNG(4711)
		b := NewRNG(4711)

		for i := 0; i < 100; i++ {
			assert.Equal(t, a.Intn(1000), b.Intn(1000))
		}
	})

	t.Run("Seed", func(t *testing.T) {
		assert.EqualValues(t, 42, NewRNG(42).Seed())
	})

	t.Run("GenerateRandomData", func(t *testing.T) {
		data := NewRNG(1).GenerateRandomData(3, 64)
		require.Len(t, data, 3)
		for _, d := range data {
			assert.Len(t, d, 64)
		}
		assert.NotEqual(t, data[0], data[1])
	})
}
