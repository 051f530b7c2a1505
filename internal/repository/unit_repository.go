package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/SANDAG/ABM-sub008/internal/database"
	"github.com/SANDAG/ABM-sub008/internal/models"
)

// UnitRepository handles land-use units and size coefficients
type UnitRepository struct {
	db *sql.DB
}

// NewUnitRepository creates a new unit repository
func NewUnitRepository(db *sql.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// landUseColumns lists the attribute columns in models.Attribute order.
func landUseColumns() []string {
	cols := make([]string, models.NumAttributes)
	for a := models.Attribute(0); a < models.NumAttributes; a++ {
		cols[a] = a.String()
	}
	return cols
}

// ListUnits returns every unit in id order
func (r *UnitRepository) ListUnits() ([]models.SpatialUnit, error) {
	query := `SELECT id, zone_id, lat, lon, ` + strings.Join(landUseColumns(), ", ") + `
		FROM units
		ORDER BY id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var units []models.SpatialUnit
	for rows.Next() {
		var u models.SpatialUnit
		dest := []interface{}{&u.ID, &u.ZoneID, &u.Lat, &u.Lon}
		for a := range u.LandUse {
			dest = append(dest, &u.LandUse[a])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}

	return units, nil
}

// CountUnits returns the number of stored units
func (r *UnitRepository) CountUnits() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM units`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count units: %w", err)
	}
	return n, nil
}

// InsertUnits replaces units with the same id in one transaction
func (r *UnitRepository) InsertUnits(units []models.SpatialUnit) error {
	cols := landUseColumns()
	query := `INSERT OR REPLACE INTO units (id, zone_id, lat, lon, ` + strings.Join(cols, ", ") + `)
		VALUES (?, ?, ?, ?` + strings.Repeat(", ?", len(cols)) + `)`

	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare unit insert: %w", err)
		}
		defer stmt.Close()

		for _, u := range units {
			args := []interface{}{u.ID, u.ZoneID, u.Lat, u.Lon}
			for _, v := range u.LandUse {
				args = append(args, v)
			}
			if _, err := stmt.Exec(args...); err != nil {
				return fmt.Errorf("failed to insert unit %d: %w", u.ID, err)
			}
		}
		return nil
	})
}

// ListSizeCoefficients returns the coefficients of one choice model.
// Unknown attribute names are an error.
func (r *UnitRepository) ListSizeCoefficients(model string) ([]models.SizeCoefficient, error) {
	query := `
		SELECT purpose, attribute, coefficient
		FROM size_coefficients
		WHERE model = ?
		ORDER BY purpose, attribute
	`

	rows, err := r.db.Query(query, model)
	if err != nil {
		return nil, fmt.Errorf("failed to list size coefficients: %w", err)
	}
	defer rows.Close()

	var coefs []models.SizeCoefficient
	for rows.Next() {
		var (
			c    models.SizeCoefficient
			attr string
		)
		if err := rows.Scan(&c.Purpose, &attr, &c.Coefficient); err != nil {
			return nil, fmt.Errorf("failed to scan size coefficient: %w", err)
		}
		a, ok := models.ParseAttribute(attr)
		if !ok {
			return nil, fmt.Errorf("model %s purpose %s: unknown attribute %q", model, c.Purpose, attr)
		}
		c.Attribute = a
		coefs = append(coefs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list size coefficients: %w", err)
	}

	return coefs, nil
}

// UpsertCoefficients stores coefficients for a model
func (r *UnitRepository) UpsertCoefficients(model string, coefs []models.SizeCoefficient) error {
	query := `
		INSERT INTO size_coefficients (model, purpose, attribute, coefficient)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(model, purpose, attribute) DO UPDATE SET coefficient = excluded.coefficient
	`

	return database.Transaction(r.db, func(tx *sql.Tx) error {
		for _, c := range coefs {
			if _, err := tx.Exec(query, model, c.Purpose, c.Attribute.String(), c.Coefficient); err != nil {
				return fmt.Errorf("failed to upsert coefficient %s/%s: %w", c.Purpose, c.Attribute, err)
			}
		}
		return nil
	})
}
