package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	intconfig "buspass/internal/config"
	intdb "buspass/internal/db"
	"buspass/internal/domain"
	"buspass/internal/domain/models"
)

// AttendanceRepository owns attendance_records and the bus_occupancy counter
// it drives. The counter is never derived by counting rows and never written
// by read-modify-write: every change is a conditional UPDATE committed in the
// same transaction as the record write.
type AttendanceRepository struct {
	DB *sql.DB
}

func (r AttendanceRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// CheckInResult reports what happened to the counter alongside the insert.
type CheckInResult struct {
	Record       models.AttendanceRecord
	Occupancy    int
	Capacity     int
	OverCapacity bool
}

// CheckIn inserts an open record and increments the bus counter atomically.
// The unique key (student_id, travel_date, open_flag) turns a double scan
// into ConflictError. With enforce=true the increment is conditional on
// remaining capacity and a full bus is ConflictError; capacity 0 means the
// bus has no configured limit.
func (r AttendanceRepository) CheckIn(rec models.AttendanceRecord, enforce bool) (CheckInResult, error) {
	var out CheckInResult
	err := intdb.WithinTx(r.db(), func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO attendance_records
				(student_id, route_id, bus_id, shift, travel_date, check_in_time, open_flag)
			VALUES (?,?,?,?,?,?,1)`,
			rec.StudentID, rec.RouteID, rec.BusID, rec.Shift, rec.TravelDate, rec.CheckInTime,
		)
		if err != nil {
			if isDuplicateKey(err) {
				return domain.ConflictError{Resource: "check-in", Msg: "student already has an open trip today"}
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		if enforce {
			res, err = tx.Exec(`
				UPDATE bus_occupancy
				SET current_occupancy = current_occupancy + 1
				WHERE bus_id=? AND (capacity = 0 OR current_occupancy < capacity)`, rec.BusID)
		} else {
			res, err = tx.Exec(`
				INSERT INTO bus_occupancy (bus_id, capacity, current_occupancy)
				VALUES (?,0,1)
				ON DUPLICATE KEY UPDATE current_occupancy = current_occupancy + 1`, rec.BusID)
		}
		if err != nil {
			return err
		}
		if enforce {
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return domain.ConflictError{Resource: "bus", Msg: "bus is at capacity"}
			}
		}

		occ, err := r.occupancyIn(tx, rec.BusID)
		if err != nil {
			return err
		}

		out = CheckInResult{
			Record:       rec,
			Occupancy:    occ.CurrentOccupancy,
			Capacity:     occ.Capacity,
			OverCapacity: occ.Capacity > 0 && occ.CurrentOccupancy > occ.Capacity,
		}
		out.Record.ID = id
		return nil
	})
	return out, err
}

// CheckOutResult carries the closed record plus whether the guarded
// decrement missed (counter already at zero: an internal fault, not user error).
type CheckOutResult struct {
	Record models.AttendanceRecord
	Drift  bool
}

// CheckOut closes the open record for (student, date, bus) and decrements
// the counter in the same transaction. No open record is NotFoundError.
// The close time comes from the caller so both timestamps share one clock;
// stamping with DB NOW() against a client-side check-in could order them
// backwards under skew.
func (r AttendanceRepository) CheckOut(studentID, busID int64, date string, at time.Time) (CheckOutResult, error) {
	var out CheckOutResult
	err := intdb.WithinTx(r.db(), func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE attendance_records
			SET check_out_time=?, open_flag=NULL
			WHERE student_id=? AND bus_id=? AND travel_date=? AND open_flag=1`,
			at, studentID, busID, date,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFoundError{Resource: "open attendance record"}
		}

		// Guarded decrement, floored at zero. A miss here means the counter
		// drifted from the record log; the caller reports it as a fault.
		res, err = tx.Exec(`
			UPDATE bus_occupancy
			SET current_occupancy = current_occupancy - 1
			WHERE bus_id=? AND current_occupancy > 0`, busID)
		if err != nil {
			return err
		}
		dec, err := res.RowsAffected()
		if err != nil {
			return err
		}
		out.Drift = dec == 0

		rec, err := r.findClosedIn(tx, studentID, busID, date)
		if err != nil {
			return err
		}
		out.Record = rec
		return nil
	})
	return out, err
}

func (r AttendanceRepository) findClosedIn(q intdb.Queryer, studentID, busID int64, date string) (models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := q.QueryRow(`
		SELECT id, student_id, route_id, bus_id, COALESCE(shift,''), COALESCE(travel_date,''),
		       check_in_time, check_out_time
		FROM attendance_records
		WHERE student_id=? AND bus_id=? AND travel_date=? AND check_out_time IS NOT NULL
		ORDER BY id DESC LIMIT 1`,
		studentID, busID, date).Scan(
		&rec.ID, &rec.StudentID, &rec.RouteID, &rec.BusID, &rec.Shift, &rec.TravelDate,
		&rec.CheckInTime, &rec.CheckOutTime,
	)
	return rec, err
}

// FindOpen returns the student's open record for a date, if any.
func (r AttendanceRepository) FindOpen(studentID int64, date string) (models.AttendanceRecord, bool, error) {
	var rec models.AttendanceRecord
	err := r.db().QueryRow(`
		SELECT id, student_id, route_id, bus_id, COALESCE(shift,''), COALESCE(travel_date,''),
		       check_in_time, check_out_time
		FROM attendance_records
		WHERE student_id=? AND travel_date=? AND open_flag=1 LIMIT 1`,
		studentID, date).Scan(
		&rec.ID, &rec.StudentID, &rec.RouteID, &rec.BusID, &rec.Shift, &rec.TravelDate,
		&rec.CheckInTime, &rec.CheckOutTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AttendanceRecord{}, false, nil
		}
		return models.AttendanceRecord{}, false, err
	}
	return rec, true, nil
}

// GetOccupancy returns the live counter for one bus.
func (r AttendanceRepository) GetOccupancy(busID int64) (models.BusOccupancy, error) {
	return r.occupancyIn(r.db(), busID)
}

func (r AttendanceRepository) occupancyIn(q intdb.Queryer, busID int64) (models.BusOccupancy, error) {
	var occ models.BusOccupancy
	err := q.QueryRow(`
		SELECT bus_id, COALESCE(capacity,0), COALESCE(current_occupancy,0)
		FROM bus_occupancy WHERE bus_id=? LIMIT 1`, busID).Scan(
		&occ.BusID, &occ.Capacity, &occ.CurrentOccupancy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.BusOccupancy{}, domain.NotFoundError{Resource: "bus"}
		}
		return models.BusOccupancy{}, err
	}
	return occ, nil
}

// AdjustOccupancy applies a staff correction delta atomically, refusing to
// take the counter below zero.
func (r AttendanceRepository) AdjustOccupancy(busID int64, delta int) (models.BusOccupancy, error) {
	res, err := r.db().Exec(`
		UPDATE bus_occupancy
		SET current_occupancy = current_occupancy + ?
		WHERE bus_id=? AND current_occupancy + ? >= 0`, delta, busID, delta)
	if err != nil {
		return models.BusOccupancy{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.BusOccupancy{}, err
	}
	if n == 0 {
		occ, err := r.GetOccupancy(busID)
		if err != nil {
			return models.BusOccupancy{}, err
		}
		return models.BusOccupancy{}, domain.ConflictError{
			Resource: "bus",
			Msg:      fmt.Sprintf("delta %d would take occupancy %d below zero", delta, occ.CurrentOccupancy),
		}
	}
	return r.GetOccupancy(busID)
}

// CountByRouteForDate aggregates check-ins/check-outs per route for one day.
// Read-only; no locks against concurrent scans.
func (r AttendanceRepository) CountByRouteForDate(date string) ([]models.RouteDayCount, error) {
	rows, err := r.db().Query(`
		SELECT a.route_id,
		       COALESCE(rt.name,''),
		       COUNT(*),
		       SUM(CASE WHEN a.check_out_time IS NOT NULL THEN 1 ELSE 0 END)
		FROM attendance_records a
		LEFT JOIN routes rt ON rt.id = a.route_id
		WHERE a.travel_date=?
		GROUP BY a.route_id, rt.name
		ORDER BY a.route_id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RouteDayCount
	for rows.Next() {
		var c models.RouteDayCount
		if err := rows.Scan(&c.RouteID, &c.RouteName, &c.CheckIns, &c.CheckOuts); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListOpen returns all currently-onboard riders with student/route names.
func (r AttendanceRepository) ListOpen() ([]models.ActiveStudent, error) {
	rows, err := r.db().Query(`
		SELECT a.id, a.student_id, COALESCE(s.name,''), a.route_id, COALESCE(rt.name,''),
		       a.bus_id, COALESCE(a.shift,''), a.check_in_time
		FROM attendance_records a
		LEFT JOIN students s ON s.id = a.student_id
		LEFT JOIN routes rt ON rt.id = a.route_id
		WHERE a.open_flag=1
		ORDER BY a.check_in_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActiveStudent
	for rows.Next() {
		var s models.ActiveStudent
		if err := rows.Scan(&s.RecordID, &s.StudentID, &s.StudentName, &s.RouteID,
			&s.RouteName, &s.BusID, &s.Shift, &s.CheckInTime); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByDate returns the full ridership report for one day.
func (r AttendanceRepository) ListByDate(date string) ([]models.ReportRow, error) {
	rows, err := r.db().Query(`
		SELECT a.id, a.student_id, COALESCE(s.name,''), a.route_id, COALESCE(rt.name,''),
		       a.bus_id, COALESCE(a.shift,''), COALESCE(a.travel_date,''),
		       a.check_in_time, a.check_out_time
		FROM attendance_records a
		LEFT JOIN students s ON s.id = a.student_id
		LEFT JOIN routes rt ON rt.id = a.route_id
		WHERE a.travel_date=?
		ORDER BY a.check_in_time`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ReportRow
	for rows.Next() {
		var row models.ReportRow
		if err := rows.Scan(&row.RecordID, &row.StudentID, &row.StudentName, &row.RouteID,
			&row.RouteName, &row.BusID, &row.Shift, &row.TravelDate,
			&row.CheckInTime, &row.CheckOutTime); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
