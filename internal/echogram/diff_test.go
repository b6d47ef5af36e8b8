package echogram

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// makeDataset builds a small grid where sample [p,s] = base + p*10 + s.
func makeDataset(t *testing.T, q Quantity, pings, samples int, base float64) *Dataset {
	t.Helper()
	data := make([]float64, pings*samples)
	for p := 0; p < pings; p++ {
		for s := 0; s < samples; s++ {
			data[p*samples+s] = base + float64(p)*10 + float64(s)
		}
	}
	ranges := make([]float64, samples)
	for s := range ranges {
		ranges[s] = float64(s) * 0.5
	}
	d, err := New(q, 38000, "test", mat.NewDense(pings, samples, data), ranges)
	require.NoError(t, err)
	return d
}

func TestDiff_Elementwise(t *testing.T) {
	t.Parallel()

	a := makeDataset(t, Sv, 4, 6, -60)
	b := makeDataset(t, Sv, 4, 6, -62.5)

	d, err := Diff(a, b)
	require.NoError(t, err)

	assert.Equal(t, Shape{Pings: 4, Samples: 6}, d.Shape())
	assert.Equal(t, a.Ranges, d.Ranges)
	assert.Equal(t, a.FrequencyHz, d.FrequencyHz)
	for p := 0; p < 4; p++ {
		for s := 0; s < 6; s++ {
			assert.InDelta(t, a.At(p, s)-b.At(p, s), d.At(p, s), 1e-12)
		}
	}
}

func TestDiff_IdentityIsZero(t *testing.T) {
	t.Parallel()

	a := makeDataset(t, Power, 3, 5, -100)
	d, err := Diff(a, a)
	require.NoError(t, err)

	for p := 0; p < 3; p++ {
		for s := 0; s < 5; s++ {
			assert.Zero(t, d.At(p, s))
		}
	}
}

func TestDiff_Antisymmetric(t *testing.T) {
	t.Parallel()

	a := makeDataset(t, Ts, 3, 4, -50)
	b := makeDataset(t, Ts, 3, 4, -47)

	ab, err := Diff(a, b)
	require.NoError(t, err)
	ba, err := Diff(b, a)
	require.NoError(t, err)

	for p := 0; p < 3; p++ {
		for s := 0; s < 4; s++ {
			assert.InDelta(t, -ba.At(p, s), ab.At(p, s), 1e-12)
		}
	}
}

func TestDiff_ShapeMismatch(t *testing.T) {
	t.Parallel()

	t.Run("ping count", func(t *testing.T) {
		t.Parallel()
		a := makeDataset(t, Sv, 4, 6, 0)
		b := makeDataset(t, Sv, 5, 6, 0)

		d, err := Diff(a, b)
		assert.Nil(t, d)

		var sm *ShapeMismatchError
		require.ErrorAs(t, err, &sm)
		assert.Equal(t, Shape{Pings: 4, Samples: 6}, sm.A)
		assert.Equal(t, Shape{Pings: 5, Samples: 6}, sm.B)
		assert.Contains(t, sm.Error(), "4 pings")
		assert.Contains(t, sm.Error(), "5 pings")
	})

	t.Run("sample count", func(t *testing.T) {
		t.Parallel()
		a := makeDataset(t, Sv, 4, 6, 0)
		b := makeDataset(t, Sv, 4, 7, 0)

		_, err := Diff(a, b)
		var sm *ShapeMismatchError
		require.ErrorAs(t, err, &sm)
	})
}

func TestDiff_QuantityMismatch(t *testing.T) {
	t.Parallel()

	a := makeDataset(t, Sv, 2, 2, 0)
	b := makeDataset(t, Ts, 2, 2, 0)

	_, err := Diff(a, b)
	require.Error(t, err)

	// Quantity disagreement is a programming error, not a shape mismatch.
	var sm *ShapeMismatchError
	assert.False(t, errors.As(err, &sm))
}

func TestDiff_NaNPropagates(t *testing.T) {
	t.Parallel()

	a := makeDataset(t, Sv, 2, 3, -60)
	b := makeDataset(t, Sv, 2, 3, -61)
	a.Samples.Set(1, 2, math.NaN())
	b.Samples.Set(0, 0, math.NaN())

	d, err := Diff(a, b)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(d.At(1, 2)))
	assert.True(t, math.IsNaN(d.At(0, 0)))
	assert.False(t, math.IsNaN(d.At(0, 1)))
}

func TestDiff_SurveyScaleGrid(t *testing.T) {
	t.Parallel()

	// Full-survey scale: 500 pings recorded to 500 m at 0.5 m resolution.
	a := makeDataset(t, Sv, 500, 1000, -60)
	b := makeDataset(t, Sv, 500, 1000, -60.07)

	d, err := Diff(a, b)
	require.NoError(t, err)
	require.Equal(t, Shape{Pings: 500, Samples: 1000}, d.Shape())

	for _, c := range [][2]int{{0, 0}, {499, 999}, {250, 500}, {17, 3}} {
		assert.InDelta(t, 0.07, d.At(c[0], c[1]), 1e-9, "coordinate %v", c)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	samples := mat.NewDense(2, 3, []float64{0.1, -0.3, 0, math.NaN(), 0.2, -0.2})
	d, err := New(Sv, 38000, "native - export", samples, []float64{0, 1, 2})
	require.NoError(t, err)

	s := Summarize(d)
	assert.InDelta(t, 0.3, s.MaxAbs, 1e-12)
	assert.InDelta(t, (0.1-0.3+0+0.2-0.2)/5, s.Mean, 1e-12)
	assert.Equal(t, 1, s.NaNCount)
}

func TestSummarize_AllNaN(t *testing.T) {
	t.Parallel()

	samples := mat.NewDense(1, 2, []float64{math.NaN(), math.NaN()})
	d, err := New(Sv, 38000, "x", samples, []float64{0, 1})
	require.NoError(t, err)

	s := Summarize(d)
	assert.True(t, math.IsNaN(s.MaxAbs))
	assert.True(t, math.IsNaN(s.Mean))
	assert.Equal(t, 2, s.NaNCount)
}
