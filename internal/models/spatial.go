package models

// Attribute identifies one land-use column carried by a spatial unit.
// Size-term coefficients are keyed by Attribute, never by free-form name
// at evaluation time.
type Attribute int

const (
	AttrPopulation Attribute = iota
	AttrHouseholds
	AttrEmployment
	AttrRetailEmployment
	AttrServiceEmployment
	AttrHotelRooms
	AttrEnrollment
	AttrParkAcres

	NumAttributes
)

var attributeNames = [NumAttributes]string{
	AttrPopulation:        "population",
	AttrHouseholds:        "households",
	AttrEmployment:        "employment",
	AttrRetailEmployment:  "retail_employment",
	AttrServiceEmployment: "service_employment",
	AttrHotelRooms:        "hotel_rooms",
	AttrEnrollment:        "enrollment",
	AttrParkAcres:         "park_acres",
}

// String returns the column name of the attribute.
func (a Attribute) String() string {
	if a < 0 || a >= NumAttributes {
		return "unknown"
	}
	return attributeNames[a]
}

// ParseAttribute maps a column name to its Attribute. Used only when
// loading coefficient tables.
func ParseAttribute(name string) (Attribute, bool) {
	for i, n := range attributeNames {
		if n == name {
			return Attribute(i), true
		}
	}
	return 0, false
}

// SpatialUnit is the finest geography used for location choice (an MGRA).
type SpatialUnit struct {
	ID     int     `json:"id" db:"id"`
	ZoneID int     `json:"zone_id" db:"zone_id"`
	Lat    float64 `json:"lat" db:"lat"`
	Lon    float64 `json:"lon" db:"lon"`

	// Land use, indexed by Attribute
	LandUse [NumAttributes]float64 `json:"land_use"`
}

// Attribute returns the value of one land-use column.
func (u SpatialUnit) Attribute(a Attribute) float64 {
	if a < 0 || a >= NumAttributes {
		return 0
	}
	return u.LandUse[a]
}

// Zone aggregates spatial units (a TAZ). Members keep load order.
type Zone struct {
	ID      int   `json:"id" db:"id"`
	UnitIDs []int `json:"unit_ids"`
}

// SizeCoefficient is one row of a size-term coefficient table.
type SizeCoefficient struct {
	Purpose     string    `json:"purpose" db:"purpose"`
	Attribute   Attribute `json:"attribute" db:"attribute"`
	Coefficient float64   `json:"coefficient" db:"coefficient"`
}
