package models

import "github.com/SANDAG/ABM-sub008/internal/random"

// NoUnit marks a location that has not been chosen.
const NoUnit = -1

// Stop is an intermediate stop on one half of a tour.
type Stop struct {
	ID      int  `json:"id"` // position on its half tour, 0-based
	Inbound bool `json:"inbound"`
	Purpose int  `json:"purpose"`
	Unit    int  `json:"unit"`
}

// Trip is one leg of a tour after stops are located.
type Trip struct {
	OriginUnit      int  `json:"origin_unit"`
	DestinationUnit int  `json:"destination_unit"`
	Inbound         bool `json:"inbound"`
	Mode            int  `json:"mode"`
}

// Tour is a visitor tour: the unit of parallel work. It is mutated in
// place by exactly one worker while the pipeline runs.
type Tour struct {
	ID              int    `json:"id"`
	Purpose         int    `json:"purpose"`
	OriginUnit      int    `json:"origin_unit"`
	DestinationUnit int    `json:"destination_unit"`
	TourMode        int    `json:"tour_mode"`
	OutboundStops   []Stop `json:"outbound_stops,omitempty"`
	InboundStops    []Stop `json:"inbound_stops,omitempty"`
	Trips           []Trip `json:"trips,omitempty"`

	// Skipped is set when the tour falls outside the sample rate.
	Skipped bool `json:"skipped"`
	// Debug enables choice tracing for this tour.
	Debug bool `json:"-"`

	rand *random.Stream
}

// NewTour creates a tour with its own random stream.
func NewTour(id int, seed uint64) *Tour {
	return &Tour{
		ID:              id,
		OriginUnit:      NoUnit,
		DestinationUnit: NoUnit,
		rand:            random.New(seed),
	}
}

// Random draws the next uniform number from the tour's stream.
func (t *Tour) Random() float64 {
	return t.rand.Float64()
}

// Stream exposes the tour's stream to choice components.
func (t *Tour) Stream() *random.Stream {
	return t.rand
}

// Direction of an airport party relative to the terminal.
const (
	Departing = 0
	Arriving  = 1
)

// AirportParty is a travel party to or from the airport.
type AirportParty struct {
	ID              int `json:"id"`
	Purpose         int `json:"purpose"`
	Direction       int `json:"direction"`
	OriginUnit      int `json:"origin_unit"`
	DestinationUnit int `json:"destination_unit"`

	rand *random.Stream
}

// NewAirportParty creates a party with its own random stream.
func NewAirportParty(id int, seed uint64) *AirportParty {
	return &AirportParty{
		ID:              id,
		OriginUnit:      NoUnit,
		DestinationUnit: NoUnit,
		rand:            random.New(seed),
	}
}

// Random draws the next uniform number from the party's stream.
func (p *AirportParty) Random() float64 {
	return p.rand.Float64()
}

// Stream exposes the party's stream.
func (p *AirportParty) Stream() *random.Stream {
	return p.rand
}
