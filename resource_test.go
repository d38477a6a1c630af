// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gsmatch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGaussianResource(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("Valid", func(t *testing.T) {
		r, err := NewGaussianResource(3, []float64{1, 2, 3}, 0.5, []int{2, 0, 1}, rng)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 0, 1}, r.Ranking())
		assert.Equal(t, 2.0, r.means[1])
		assert.Equal(t, 0.5, r.noise)
	})

	t.Run("MeansLength", func(t *testing.T) {
		_, err := NewGaussianResource(3, []float64{1, 2}, 1, []int{0, 1, 2}, rng)
		assert.ErrorIs(t, err, ErrSizeMismatch)
	})

	t.Run("BadRanking", func(t *testing.T) {
		_, err := NewGaussianResource(2, []float64{1, 2}, 1, []int{1, 1}, rng)
		assert.ErrorIs(t, err, ErrInvalidRanking)
	})

	t.Run("NilSource", func(t *testing.T) {
		_, err := NewGaussianResource(1, []float64{1}, 1, []int{0}, nil)
		assert.ErrorIs(t, err, ErrNilSource)
	})

	t.Run("RankingIsCopied", func(t *testing.T) {
		ranking := []int{0, 1}
		r, err := NewGaussianResource(2, []float64{0, 0}, 1, ranking, rng)
		require.NoError(t, err)
		ranking[0] = 1
		got := r.Ranking()
		got[1] = 0
		assert.Equal(t, []int{0, 1}, r.Ranking())
	})
}

func TestGaussianResource_Sample(t *testing.T) {
	t.Run("ReproducibleWithSeed", func(t *testing.T) {
		r1, err := NewGaussianResource(2, []float64{0.3, -1}, 1, []int{0, 1}, rand.New(rand.NewSource(7)))
		require.NoError(t, err)
		r2, err := NewGaussianResource(2, []float64{0.3, -1}, 1, []int{0, 1}, rand.New(rand.NewSource(7)))
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			v1, err := r1.Sample(i % 2)
			require.NoError(t, err)
			v2, err := r2.Sample(i % 2)
			require.NoError(t, err)
			assert.Equal(t, v1, v2)
		}
	})

	t.Run("OneDrawPerSample", func(t *testing.T) {
		rng := rand.New(rand.NewSource(11))
		r, err := NewGaussianResource(1, []float64{2}, 0.5, []int{0}, rng)
		require.NoError(t, err)

		want := rand.New(rand.NewSource(11)).NormFloat64()*0.5 + 2
		got, err := r.Sample(0)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("SharedSourceOrder", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		a, err := NewGaussianResource(1, []float64{0}, 1, []int{0}, rng)
		require.NoError(t, err)
		b, err := NewGaussianResource(1, []float64{10}, 1, []int{0}, rng)
		require.NoError(t, err)

		ref := rand.New(rand.NewSource(3))
		va, _ := a.Sample(0)
		vb, _ := b.Sample(0)
		assert.Equal(t, ref.NormFloat64(), va)
		assert.Equal(t, ref.NormFloat64()+10, vb)
	})

	t.Run("EmpiricalMoments", func(t *testing.T) {
		r, err := NewGaussianResource(1, []float64{1.5}, 2, []int{0}, rand.New(rand.NewSource(5)))
		require.NoError(t, err)

		const n = 50000
		var sum, sq float64
		for i := 0; i < n; i++ {
			v, err := r.Sample(0)
			require.NoError(t, err)
			sum += v
			sq += v * v
		}
		mean := sum / n
		std := math.Sqrt(sq/n - mean*mean)
		assert.InDelta(t, 1.5, mean, 0.05)
		assert.InDelta(t, 2.0, std, 0.05)
	})

	t.Run("AgentOutOfRange", func(t *testing.T) {
		r, err := NewGaussianResource(2, []float64{0, 0}, 1, []int{0, 1}, rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		_, err = r.Sample(2)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		_, err = r.Sample(-1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("NonPositiveNoise", func(t *testing.T) {
		for _, noise := range []float64{0, -1, math.NaN()} {
			r, err := NewGaussianResource(1, []float64{0}, noise, []int{0}, rand.New(rand.NewSource(1)))
			require.NoError(t, err)
			_, err = r.Sample(0)
			assert.ErrorIs(t, err, ErrInvalidNoise)
		}
	})
}
