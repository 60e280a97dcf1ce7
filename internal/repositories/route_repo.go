package repositories

import (
	"database/sql"
	"errors"
	"strings"

	intconfig "buspass/internal/config"
	"buspass/internal/domain"
	"buspass/internal/domain/models"
)

// RouteRepository is the read-only view onto the master-data collaborator.
// The core only takes snapshots here; route and bus administration lives
// outside this service.
type RouteRepository struct {
	DB *sql.DB
}

func (r RouteRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Snapshot reads the route's stops, shifts and current charges as of now.
func (r RouteRepository) Snapshot(routeID int64) (models.RouteSnapshot, error) {
	var (
		snap     models.RouteSnapshot
		shiftCSV string
	)
	err := r.db().QueryRow(`
		SELECT id, COALESCE(name,''), COALESCE(shifts,''), COALESCE(semester_charge,0), COALESCE(ticket_fare,0)
		FROM routes WHERE id=? LIMIT 1`, routeID).Scan(
		&snap.RouteID, &snap.Name, &shiftCSV, &snap.SemesterCharge, &snap.TicketFare,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RouteSnapshot{}, domain.NotFoundError{Resource: "route"}
		}
		return models.RouteSnapshot{}, err
	}

	for _, s := range strings.Split(shiftCSV, ",") {
		if s = strings.TrimSpace(s); s != "" {
			snap.Shifts = append(snap.Shifts, s)
		}
	}

	rows, err := r.db().Query(`
		SELECT COALESCE(stop_name,'') FROM route_stops
		WHERE route_id=? ORDER BY position`, routeID)
	if err != nil {
		return models.RouteSnapshot{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var stop string
		if err := rows.Scan(&stop); err != nil {
			return models.RouteSnapshot{}, err
		}
		snap.Stops = append(snap.Stops, stop)
	}
	return snap, rows.Err()
}

// StudentProfile reads the profile collaborator's completeness flag.
func (r RouteRepository) StudentProfile(studentID int64) (models.StudentProfile, error) {
	var p models.StudentProfile
	err := r.db().QueryRow(`
		SELECT id, COALESCE(name,''), COALESCE(profile_complete,0)
		FROM students WHERE id=? LIMIT 1`, studentID).Scan(
		&p.ID, &p.Name, &p.ProfileComplete,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StudentProfile{}, domain.NotFoundError{Resource: "student"}
		}
		return models.StudentProfile{}, err
	}
	return p, nil
}
