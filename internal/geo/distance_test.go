package geo

import (
	"math"
	"testing"
)

func TestDistanceIdenticalPointsIsExactlyZero(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{40.0, -75.0},
		{-33.8688, 151.2093},
		{89.9999, 179.9999},
	}
	for _, p := range points {
		if d := DistanceMeters(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("DistanceMeters(%v, %v, same) = %v, want exactly 0", p[0], p[1], d)
		}
	}
}

func TestDistanceSymmetry(t *testing.T) {
	d1 := DistanceMeters(40.0, -75.0, 40.001, -75.002)
	d2 := DistanceMeters(40.001, -75.002, 40.0, -75.0)
	if d1 != d2 {
		t.Errorf("distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestDistanceKnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64 // meters
	}{
		// 0.00045 degrees of latitude is ~50 m, the proximity threshold.
		{"fifty meters of latitude", 0, 0, 0.00045, 0, 50.04},
		{"one degree of latitude at equator", 0, 0, 1, 0, 111195},
		{"one degree of longitude at 60N", 60, 0, 60, 1, 55597},
		{"paris to london", 48.8566, 2.3522, 51.5074, -0.1278, 343550},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want)/tt.want > 0.01 {
				t.Errorf("DistanceMeters = %v, want %v within 1%%", got, tt.want)
			}
		})
	}
}

func TestWithinRadius(t *testing.T) {
	// Points straddling the 50 m gate: 49 m passes, 51 m does not.
	const degPerMeterLat = 1.0 / 111195

	if !WithinRadius(0, 0, 49*degPerMeterLat, 0, 50) {
		t.Error("point 49m away should be within 50m radius")
	}
	if WithinRadius(0, 0, 51*degPerMeterLat, 0, 50) {
		t.Error("point 51m away should not be within 50m radius")
	}
}
