package mode

import (
	"math"
	"testing"

	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/random"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
)

func testModel(t *testing.T) *Model {
	t.Helper()
	idx, err := spatial.NewIndex([]models.SpatialUnit{
		{ID: 1, ZoneID: 1, Lat: 32.70, Lon: -117.16},
		{ID: 2, ZoneID: 1, Lat: 32.705, Lon: -117.16},
		{ID: 3, ZoneID: 2, Lat: 33.00, Lon: -117.16},
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(DefaultParams(), idx)
}

func TestWalkUnavailableWhenFar(t *testing.T) {
	m := testModel(t)
	var u [NumModes]float64
	m.Utilities(10, &u)
	if !math.IsInf(u[Walk], -1) {
		t.Errorf("walk utility at 10 km = %v", u[Walk])
	}
	m.Utilities(1, &u)
	if math.IsInf(u[Walk], 0) {
		t.Error("walk unavailable at 1 km")
	}

	rng := random.New(4)
	for i := 0; i < 200; i++ {
		md, err := m.Choose(rng, 0, 2)
		if err != nil {
			t.Fatal(err)
		}
		if md == Walk {
			t.Fatal("walk chosen for a 33 km trip")
		}
	}
}

func TestLogsumDecreasesWithDistance(t *testing.T) {
	m := testModel(t)
	near := m.Logsum(0, 0, 1)
	far := m.Logsum(0, 0, 2)
	if !(near > far) {
		t.Errorf("near logsum %v not above far %v", near, far)
	}
}

func TestModeString(t *testing.T) {
	if Transit.String() != "transit" || Mode(99).String() != "unknown" {
		t.Error("unexpected mode names")
	}
}
