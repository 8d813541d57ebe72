package linefollow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	ref, err := ParseReference([]float64{1000})
	require.NoError(t, err)
	assert.Equal(t, Reference{1000, 1000, 1000}, ref)

	ref, err = ParseReference([]float64{31.28, 37.29, 36.66})
	require.NoError(t, err)
	assert.Equal(t, Reference{31.28, 37.29, 36.66}, ref)
}

func TestParseReference_Invalid(t *testing.T) {
	for _, values := range [][]float64{
		nil,
		{},
		{1, 2},
		{1, 2, 3, 4},
		{math.NaN()},
		{1, math.Inf(1), 3},
	} {
		_, err := ParseReference(values)
		assert.ErrorIs(t, err, ErrInvalidReference, "values %v", values)
	}
}

func TestReference_Apply(t *testing.T) {
	ref := Reference{10, 20, 30}
	assert.Equal(t, Reading{90, 80, -30}, ref.Apply([3]float64{100, 100, 0}))
	assert.Equal(t, Reading{5, 5, 5}, Broadcast(0).Apply([3]float64{5, 5, 5}))
}

func TestPolarity(t *testing.T) {
	assert.True(t, DarkLine.Valid())
	assert.True(t, BrightLine.Valid())
	assert.False(t, Polarity(2).Valid())
	assert.Equal(t, "dark", DarkLine.String())
	assert.Equal(t, "bright", BrightLine.String())
	assert.Equal(t, "Polarity(-1)", Polarity(-1).String())
}

func TestLineState_String(t *testing.T) {
	assert.Equal(t, "no-line", NoLine.String())
	assert.Equal(t, "-0.5", At(-0.5).String())
	assert.Equal(t, "0.0", Centered.String())
	assert.NotEqual(t, NoLine, Centered)
}

func TestPattern_String(t *testing.T) {
	assert.Equal(t, "000", Pattern{}.String())
	assert.Equal(t, "101", Pattern{true, false, true}.String())
}
