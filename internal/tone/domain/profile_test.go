package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDamped(t *testing.T) {
	start := Dimensions{Formality: 6, Length: 5, Warmth: 5, Certainty: 5}
	got := start.Damped(Dimensions{Formality: 2}, DampingFactor)
	assert.InDelta(t, 6.6, got.Formality, 1e-9)
	assert.Equal(t, 5.0, got.Length)
}

func TestDampedStaysInRange(t *testing.T) {
	d := Dimensions{Formality: 9.8, Length: 1.2, Warmth: 5, Certainty: 5}
	for i := 0; i < 50; i++ {
		d = d.Damped(Dimensions{Formality: 10, Length: -10, Warmth: 7, Certainty: -3}, DampingFactor)
		for _, v := range []float64{d.Formality, d.Length, d.Warmth, d.Certainty} {
			assert.GreaterOrEqual(t, v, MinScore)
			assert.LessOrEqual(t, v, MaxScore)
		}
	}
	assert.Equal(t, MaxScore, d.Formality)
	assert.Equal(t, MinScore, d.Length)
}

func TestAddQuirk(t *testing.T) {
	p := NewProfile("u1")
	p.AddQuirk("signs off with 'Cheers'")
	p.AddQuirk("signs off with 'Cheers'")
	p.AddQuirk("")
	assert.Len(t, p.Quirks, 1)

	for i := 0; i < 15; i++ {
		p.AddQuirk(string(rune('a' + i)))
	}
	assert.Len(t, p.Quirks, 10)
	assert.Equal(t, "o", p.Quirks[9])
}
