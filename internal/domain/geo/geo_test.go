package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain"
)

func almost(a, b, eps float64) bool {
	if a > b {
		return a-b < eps
	}
	return b-a < eps
}

func TestNewPoint_Valid(t *testing.T) {
	tests := []struct {
		lat, lon float64
	}{
		{0, 0},
		{55.7558, 37.6173},   // Москва
		{40.7128, -74.0060},  // Нью-Йорк
		{-33.8688, 151.2093}, // Сидней
		{90, 180},
		{-90, -180},
	}
	for _, tt := range tests {
		p, err := NewPoint(tt.lat, tt.lon)
		if err != nil {
			t.Errorf("NewPoint(%f, %f) error = %v", tt.lat, tt.lon, err)
			continue
		}
		if p.Lat() != tt.lat || p.Lon() != tt.lon {
			t.Errorf("NewPoint(%f, %f) = (%f, %f)", tt.lat, tt.lon, p.Lat(), p.Lon())
		}
	}
}

func TestNewPoint_OutOfRange(t *testing.T) {
	tests := []struct {
		lat, lon float64
	}{
		{91, 0},
		{-91, 0},
		{0, 181},
		{0, -181},
	}
	for _, tt := range tests {
		_, err := NewPoint(tt.lat, tt.lon)
		if !errors.Is(err, domain.ErrGeoQueryInvalid) {
			t.Errorf("NewPoint(%f, %f) error = %v, want ErrGeoQueryInvalid", tt.lat, tt.lon, err)
		}
	}
}

func TestHaversine_SamePoint(t *testing.T) {
	d := Haversine(40.7128, -74.0060, 40.7128, -74.0060)
	if d != 0 {
		t.Fatalf("want 0, got %f", d)
	}
}

func TestHaversine_NewYork_London(t *testing.T) {
	// NYC to London: ~5,570 km
	d := Haversine(40.7128, -74.0060, 51.5074, -0.1278)
	expected := 5_570_000.0
	if !almost(d, expected, 30_000) { // 30km tolerance (spherical approx)
		t.Fatalf("want ~%.0fm, got %.0fm", expected, d)
	}
}

func TestHaversine_Antipodal(t *testing.T) {
	// Opposite sides of Earth: ~20,015 km (half circumference)
	d := Haversine(0, 0, 0, 180)
	expected := math.Pi * EarthRadiusMeters
	if !almost(d, expected, 1) {
		t.Fatalf("want ~%.0fm, got %.0fm", expected, d)
	}
}

func TestDistanceMeters(t *testing.T) {
	moscow, err := NewPoint(55.7558, 37.6173)
	if err != nil {
		t.Fatal(err)
	}
	spb, err := NewPoint(59.9311, 30.3609)
	if err != nil {
		t.Fatal(err)
	}

	// Москва — Петербург: ~634 km
	d := moscow.DistanceMeters(spb)
	if !almost(d, 634_000, 10_000) {
		t.Fatalf("want ~634km, got %.0fm", d)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		valid    bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{91, 0, false},
		{0, 181, false},
		{-91, 0, false},
		{0, -181, false},
	}
	for _, tt := range tests {
		if got := ValidateCoordinates(tt.lat, tt.lon); got != tt.valid {
			t.Errorf("ValidateCoordinates(%f, %f) = %v, want %v", tt.lat, tt.lon, got, tt.valid)
		}
	}
}

func TestValidateRadius(t *testing.T) {
	tests := []struct {
		meters float64
		valid  bool
	}{
		{1, true},
		{10_000, true},
		{MaxRadiusMeters, true},
		{0, false},
		{-5, false},
		{MaxRadiusMeters + 1, false},
	}
	for _, tt := range tests {
		if got := ValidateRadius(tt.meters); got != tt.valid {
			t.Errorf("ValidateRadius(%f) = %v, want %v", tt.meters, got, tt.valid)
		}
	}
}
