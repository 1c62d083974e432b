package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle is a tracked car belonging to one user.
type Vehicle struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	VIN         string    `json:"vin"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChargeSession is one charging event for a vehicle.
type ChargeSession struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	VehicleID uuid.UUID  `json:"vehicle_id"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// DriveSession is one drive for a vehicle.
type DriveSession struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	VehicleID uuid.UUID  `json:"vehicle_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// MapPoint is a recorded position with an embedded raw sample array. The
// array is stripped before any notification leaves the process.
type MapPoint struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	VehicleID  uuid.UUID `json:"vehicle_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	SpeedKmh   float64   `json:"speed_kmh"`
	BatteryPct float64   `json:"battery_pct"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SessionSummary is the computed aggregate attached to session-like
// notifications. Charge sessions populate the energy/power fields, drive
// sessions the distance/speed fields.
type SessionSummary struct {
	EnergyAddedKWh  *float64 `json:"energyAddedKwh,omitempty"`
	AvgPowerKW      *float64 `json:"avgPowerKw,omitempty"`
	DistanceKm      *float64 `json:"distanceKm,omitempty"`
	AvgSpeedKmh     *float64 `json:"avgSpeedKmh,omitempty"`
	DurationSeconds int64    `json:"durationSeconds"`
	SampleCount     int64    `json:"sampleCount"`
}
