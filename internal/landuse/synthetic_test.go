package landuse

import (
	"testing"

	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
)

func TestSynthetic(t *testing.T) {
	units := Synthetic(25, 8, 42)
	if len(units) != 200 {
		t.Fatalf("generated %d units", len(units))
	}
	idx, err := spatial.NewIndex(units)
	if err != nil {
		t.Fatalf("units do not index: %v", err)
	}
	if idx.NumZones() != 25 {
		t.Errorf("zones = %d", idx.NumZones())
	}

	var hotels, empty int
	for _, u := range units {
		if u.LandUse[models.AttrHotelRooms] > 0 {
			hotels++
		}
		if u.LandUse == ([models.NumAttributes]float64{}) {
			empty++
		}
		for a, v := range u.LandUse {
			if v < 0 {
				t.Fatalf("unit %d attribute %d negative", u.ID, a)
			}
		}
	}
	if hotels == 0 || empty == len(units) {
		t.Errorf("hotels=%d empty=%d", hotels, empty)
	}

	again := Synthetic(25, 8, 42)
	for i := range units {
		if units[i] != again[i] {
			t.Fatalf("unit %d differs between runs with the same seed", i)
		}
	}
}

func TestDefaultCoefficients(t *testing.T) {
	purposes := []string{"work", "dining", "visitor_personal", "resident_business", "golf"}
	coefs := DefaultCoefficients(purposes)

	covered := map[string]bool{}
	for _, c := range coefs {
		covered[c.Purpose] = true
		if c.Coefficient <= 0 {
			t.Errorf("%s/%s coefficient %v", c.Purpose, c.Attribute, c.Coefficient)
		}
	}
	for _, p := range purposes {
		if !covered[p] {
			t.Errorf("purpose %s has no coefficients", p)
		}
	}
}
