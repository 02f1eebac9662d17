package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_SamePoint(t *testing.T) {
	assert.Equal(t, 0.0, Distance(28.6139, 77.2090, 28.6139, 77.2090))
}

func TestDistance_Symmetric(t *testing.T) {
	a := Distance(28.6139, 77.2090, 19.0760, 72.8777)
	b := Distance(19.0760, 72.8777, 28.6139, 77.2090)
	assert.Equal(t, a, b)
}

func TestDistance_DelhiToMumbai(t *testing.T) {
	// Known great-circle distance is roughly 1150 km.
	d := Distance(28.6139, 77.2090, 19.0760, 72.8777)
	assert.InDelta(t, 1150, d, 20)
}

func TestDistance_ShortRange(t *testing.T) {
	// Two points ~1.1 km apart along a meridian (0.01 deg latitude).
	d := Distance(28.6139, 77.2090, 28.6239, 77.2090)
	assert.InDelta(t, 1.11, d, 0.02)
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 12.35, RoundKm(12.3456))
	assert.Equal(t, 0.0, RoundKm(0.001))
}

func TestValidRanges(t *testing.T) {
	assert.True(t, ValidLatitude(90))
	assert.True(t, ValidLatitude(-90))
	assert.False(t, ValidLatitude(90.1))
	assert.True(t, ValidLongitude(180))
	assert.False(t, ValidLongitude(-180.5))
}
