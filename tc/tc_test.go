package tc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversionRoundtrip(t *testing.T) {
	for _, x := range []float64{-273.15, -40, 0, 21.5, 37, 100, 1000, 1e9} {
		assert.InDelta(t, x, ToFahrenheit(ToCelsius(x)), 1e-9*(1+abs(x)))
		assert.InDelta(t, x, ToCelsius(ToFahrenheit(x)), 1e-9*(1+abs(x)))
	}
}

func TestKnownConversions(t *testing.T) {
	assert.Equal(t, 32.0, ToFahrenheit(0))
	assert.Equal(t, 212.0, ToFahrenheit(100))
	assert.Equal(t, -40.0, ToCelsius(-40))
	assert.Equal(t, 100.0, ToCelsius(212))
}

func TestUnitByName(t *testing.T) {
	tt := []struct {
		name     string
		expected Unit
		invalid  bool
	}{
		{"C", Celsius, false},
		{" f ", Fahrenheit, false},
		{"celsius", Celsius, false},
		{"Fahrenheit", Fahrenheit, false},
		{"K", 0, true},
		{"", 0, true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := UnitByName(tc.name)
			if tc.invalid {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestUnitByFlag(t *testing.T) {
	u, err := UnitByFlag(1)
	assert.NoError(t, err)
	assert.Equal(t, Fahrenheit, u)

	_, err = UnitByFlag(2)
	assert.Error(t, err)
}

func TestUnitStep(t *testing.T) {
	assert.Equal(t, 1.0, Celsius.Step())
	assert.Equal(t, 5.0/9.0, Fahrenheit.Step())
	assert.Equal(t, "C", Celsius.String())
	assert.Equal(t, "F", Fahrenheit.String())
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestUnitText(t *testing.T) {
	text, err := Fahrenheit.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "F", string(text))

	var u Unit
	assert.NoError(t, u.UnmarshalText([]byte("fahrenheit")))
	assert.Equal(t, Fahrenheit, u)
	assert.Error(t, u.UnmarshalText([]byte("kelvin")))
}
