package fingerprint

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diverset/util"
)

func TestSimHash(t *testing.T) {
	p := NewSimHash()

	t.Run("Name", func(t *testing.T) {
		assert.Equal(t, "simhash", p.Name())
	})

	t.Run("TooSmall", func(t *testing.T) {
		_, err := p.Fingerprint(make([]byte, MinSize-1))
		require.ErrorIs(t, err, ErrInvalidResource)
	})

	t.Run("Deterministic", func(t *testing.T) {
		data := bytes.Repeat([]byte("the quick brown fox "), 10)

		a, err := p.Fingerprint(data)
		require.NoError(t, err)
		b, err := p.Fingerprint(data)
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, string(a), 16)
	})

	t.Run("IdenticalContentIsDistanceZero", func(t *testing.T) {
		data := util.NewRNG(1).GenerateRandomData(1, 256)[0]

		fp, err := p.Fingerprint(data)
		require.NoError(t, err)

		d, err := p.Distance(fp, fp)
		require.NoError(t, err)
		assert.Zero(t, d)
	})

	t.Run("DistanceIsSymmetric", func(t *testing.T) {
		data := util.NewRNG(2).GenerateRandomData(2, 256)

		a, err := p.Fingerprint(data[0])
		require.NoError(t, err)
		b, err := p.Fingerprint(data[1])
		require.NoError(t, err)

		ab, err := p.Distance(a, b)
		require.NoError(t, err)
		ba, err := p.Distance(b, a)
		require.NoError(t, err)

		assert.Equal(t, ab, ba)
	})

	t.Run("SimilarContentIsCloserThanUnrelated", func(t *testing.T) {
		base := bytes.Repeat([]byte("lorem ipsum dolor sit amet consectetur "), 20)

		tweaked := append([]byte(nil), base...)
		copy(tweaked[100:], "XYZ")

		unrelated := util.NewRNG(3).GenerateRandomData(1, len(base))[0]

		fpBase, err := p.Fingerprint(base)
		require.NoError(t, err)
		fpTweaked, err := p.Fingerprint(tweaked)
		require.NoError(t, err)
		fpUnrelated, err := p.Fingerprint(unrelated)
		require.NoError(t, err)

		near, err := p.Distance(fpBase, fpTweaked)
		require.NoError(t, err)
		far, err := p.Distance(fpBase, fpUnrelated)
		require.NoError(t, err)

		assert.Less(t, near, far)
	})

	t.Run("MalformedFingerprint", func(t *testing.T) {
		_, err := p.Distance("not-hex-at-all!", "0000000000000000")
		require.ErrorIs(t, err, ErrMalformedFingerprint)

		_, err = p.Distance("0000000000000000", "abc")
		require.ErrorIs(t, err, ErrMalformedFingerprint)
	})

	t.Run("DistanceIsBounded", func(t *testing.T) {
		d, err := p.Distance("0000000000000000", "ffffffffffffffff")
		require.NoError(t, err)
		assert.Equal(t, float64(64), d)
	})
}

func TestByName(t *testing.T) {
	t.Run("SimHash", func(t *testing.T) {
		p, ok := ByName("simhash")
		require.True(t, ok)
		assert.Equal(t, "simhash", p.Name())
	})

	t.Run("Unknown", func(t *testing.T) {
		_, ok := ByName("minhash")
		assert.False(t, ok)
	})
}
