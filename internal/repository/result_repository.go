package repository

import (
	"database/sql"
	"fmt"

	"github.com/SANDAG/ABM-sub008/internal/database"
	"github.com/SANDAG/ABM-sub008/internal/mode"
	"github.com/SANDAG/ABM-sub008/internal/models"
)

// Labels maps purpose indices to the names stored with results.
type Labels struct {
	TourPurposes []string
	StopPurposes []string
}

func label(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("purpose_%d", i)
	}
	return names[i]
}

// TourResult is a stored tour row
type TourResult struct {
	TourID          int    `json:"tour_id"`
	Purpose         string `json:"purpose"`
	OriginUnit      int    `json:"origin_unit"`
	DestinationUnit int    `json:"destination_unit"`
	TourMode        string `json:"tour_mode"`
	Skipped         bool   `json:"skipped"`
}

// AirportResult is a stored airport party row
type AirportResult struct {
	PartyID         int    `json:"party_id"`
	Purpose         string `json:"purpose"`
	Direction       string `json:"direction"`
	OriginUnit      int    `json:"origin_unit"`
	DestinationUnit int    `json:"destination_unit"`
}

// ZoneCount is the number of chosen destinations per purpose and zone
type ZoneCount struct {
	Purpose string `json:"purpose"`
	ZoneID  int    `json:"zone_id"`
	Count   int    `json:"count"`
}

// ModeCount is the number of trips per mode
type ModeCount struct {
	Mode  string `json:"mode"`
	Count int    `json:"count"`
}

// ResultRepository stores simulation outputs
type ResultRepository struct {
	db *sql.DB
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveTours writes tours with their stops and trips in one transaction
func (r *ResultRepository) SaveTours(runID string, tours []*models.Tour, labels Labels) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		tourStmt, err := tx.Prepare(`
			INSERT INTO tour_results (run_id, tour_id, purpose, origin_unit, destination_unit, tour_mode, skipped)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare tour insert: %w", err)
		}
		defer tourStmt.Close()

		stopStmt, err := tx.Prepare(`
			INSERT INTO stop_results (run_id, tour_id, inbound, stop_id, purpose, unit)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare stop insert: %w", err)
		}
		defer stopStmt.Close()

		tripStmt, err := tx.Prepare(`
			INSERT INTO trip_results (run_id, tour_id, seq, inbound, origin_unit, destination_unit, mode)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare trip insert: %w", err)
		}
		defer tripStmt.Close()

		for _, t := range tours {
			_, err := tourStmt.Exec(runID, t.ID, label(labels.TourPurposes, t.Purpose),
				t.OriginUnit, t.DestinationUnit, mode.Mode(t.TourMode).String(), t.Skipped)
			if err != nil {
				return fmt.Errorf("failed to insert tour %d: %w", t.ID, err)
			}

			for _, stops := range [][]models.Stop{t.OutboundStops, t.InboundStops} {
				for _, s := range stops {
					_, err := stopStmt.Exec(runID, t.ID, s.Inbound, s.ID, label(labels.StopPurposes, s.Purpose), s.Unit)
					if err != nil {
						return fmt.Errorf("failed to insert stop %d of tour %d: %w", s.ID, t.ID, err)
					}
				}
			}

			for seq, trip := range t.Trips {
				_, err := tripStmt.Exec(runID, t.ID, seq, trip.Inbound,
					trip.OriginUnit, trip.DestinationUnit, mode.Mode(trip.Mode).String())
				if err != nil {
					return fmt.Errorf("failed to insert trip %d of tour %d: %w", seq, t.ID, err)
				}
			}
		}
		return nil
	})
}

// SaveAirportParties writes party locations in one transaction
func (r *ResultRepository) SaveAirportParties(runID string, parties []*models.AirportParty, purposes []string) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO airport_results (run_id, party_id, purpose, direction, origin_unit, destination_unit)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare airport insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range parties {
			direction := "departing"
			if p.Direction == models.Arriving {
				direction = "arriving"
			}
			_, err := stmt.Exec(runID, p.ID, label(purposes, p.Purpose), direction, p.OriginUnit, p.DestinationUnit)
			if err != nil {
				return fmt.Errorf("failed to insert airport party %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

// ListTourResults returns the tours of a run in id order
func (r *ResultRepository) ListTourResults(runID string) ([]TourResult, error) {
	query := `
		SELECT tour_id, purpose, origin_unit, destination_unit, tour_mode, skipped
		FROM tour_results
		WHERE run_id = ?
		ORDER BY tour_id
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tour results: %w", err)
	}
	defer rows.Close()

	var results []TourResult
	for rows.Next() {
		var t TourResult
		if err := rows.Scan(&t.TourID, &t.Purpose, &t.OriginUnit, &t.DestinationUnit, &t.TourMode, &t.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan tour result: %w", err)
		}
		results = append(results, t)
	}

	return results, rows.Err()
}

// ListAirportResults returns the parties of a run in id order
func (r *ResultRepository) ListAirportResults(runID string) ([]AirportResult, error) {
	query := `
		SELECT party_id, purpose, direction, origin_unit, destination_unit
		FROM airport_results
		WHERE run_id = ?
		ORDER BY party_id
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list airport results: %w", err)
	}
	defer rows.Close()

	var results []AirportResult
	for rows.Next() {
		var p AirportResult
		if err := rows.Scan(&p.PartyID, &p.Purpose, &p.Direction, &p.OriginUnit, &p.DestinationUnit); err != nil {
			return nil, fmt.Errorf("failed to scan airport result: %w", err)
		}
		results = append(results, p)
	}

	return results, rows.Err()
}

// DestinationZoneCounts counts chosen tour destinations by purpose and zone.
// Skipped tours are excluded.
func (r *ResultRepository) DestinationZoneCounts(runID string) ([]ZoneCount, error) {
	query := `
		SELECT t.purpose, u.zone_id, COUNT(*)
		FROM tour_results t
		JOIN units u ON u.id = t.destination_unit
		WHERE t.run_id = ? AND t.skipped = 0
		GROUP BY t.purpose, u.zone_id
		ORDER BY t.purpose, u.zone_id
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count destinations: %w", err)
	}
	defer rows.Close()

	var counts []ZoneCount
	for rows.Next() {
		var c ZoneCount
		if err := rows.Scan(&c.Purpose, &c.ZoneID, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan destination count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// TripModeCounts counts trips of a run by mode
func (r *ResultRepository) TripModeCounts(runID string) ([]ModeCount, error) {
	query := `
		SELECT mode, COUNT(*)
		FROM trip_results
		WHERE run_id = ?
		GROUP BY mode
		ORDER BY mode
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count trip modes: %w", err)
	}
	defer rows.Close()

	var counts []ModeCount
	for rows.Next() {
		var c ModeCount
		if err := rows.Scan(&c.Mode, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan mode count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}
