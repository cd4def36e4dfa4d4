package session

import (
	"backend-carewatch/internal/shared/instant"
)

type Status string

const (
	StatusRequested Status = "requested"
	StatusAccepted  Status = "accepted"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Search scopes for sitter matching. MaxDistanceKm applies to nearby only.
const (
	ScopeInvite     = "invite"
	ScopeNearby     = "nearby"
	ScopeCity       = "city"
	ScopeNationwide = "nationwide"
)

// TimeSlot is a discrete booking window, an alternative to a continuous
// start/end range.
type TimeSlot struct {
	Date          string  `json:"date"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	DurationHours float64 `json:"duration_hours"`
}

type Session struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
	SitterID string `json:"sitter_id,omitempty"`
	ChildID  string `json:"child_id"`
	Status   Status `json:"status"`

	StartTime instant.Time `json:"start_time,omitempty"`
	EndTime   instant.Time `json:"end_time,omitempty"`
	TimeSlots []TimeSlot   `json:"time_slots,omitempty"`

	SearchScope   string  `json:"search_scope,omitempty"`
	MaxDistanceKm float64 `json:"max_distance_km,omitempty"`

	Address         string  `json:"address,omitempty"`
	Lat             float64 `json:"lat,omitempty"`
	Lng             float64 `json:"lng,omitempty"`
	GeofenceRadiusM float64 `json:"geofence_radius_m,omitempty"`

	GPSEnabled        bool `json:"gps_enabled"`
	CryEnabled        bool `json:"cry_enabled"`
	MonitoringEnabled bool `json:"monitoring_enabled"`

	HourlyRate  float64 `json:"hourly_rate,omitempty"`
	TotalAmount float64 `json:"total_amount,omitempty"`
	Notes       string  `json:"notes,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`

	AcceptedAt instant.Time `json:"accepted_at,omitempty"`
	CreatedAt  instant.Time `json:"created_at"`
	UpdatedAt  instant.Time `json:"updated_at"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type UpdateRequest struct {
	Notes             *string  `json:"notes,omitempty"`
	Address           *string  `json:"address,omitempty"`
	HourlyRate        *float64 `json:"hourly_rate,omitempty"`
	TotalAmount       *float64 `json:"total_amount,omitempty"`
	GPSEnabled        *bool    `json:"gps_enabled,omitempty"`
	CryEnabled        *bool    `json:"cry_enabled,omitempty"`
	MonitoringEnabled *bool    `json:"monitoring_enabled,omitempty"`
	GeofenceRadiusM   *float64 `json:"geofence_radius_m,omitempty"`
	EndTime           *int64   `json:"end_time,omitempty"`
}

// Fields returns only the explicitly provided fields, so absent ones are
// never nulled by the store layer.
func (r UpdateRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Notes != nil {
		fields["notes"] = *r.Notes
	}
	if r.Address != nil {
		fields["address"] = *r.Address
	}
	if r.HourlyRate != nil {
		fields["hourly_rate"] = *r.HourlyRate
	}
	if r.TotalAmount != nil {
		fields["total_amount"] = *r.TotalAmount
	}
	if r.GPSEnabled != nil {
		fields["gps_enabled"] = *r.GPSEnabled
	}
	if r.CryEnabled != nil {
		fields["cry_enabled"] = *r.CryEnabled
	}
	if r.MonitoringEnabled != nil {
		fields["monitoring_enabled"] = *r.MonitoringEnabled
	}
	if r.GeofenceRadiusM != nil {
		fields["geofence_radius_m"] = *r.GeofenceRadiusM
	}
	if r.EndTime != nil {
		fields["end_time"] = *r.EndTime
	}
	return fields
}

// CanAccess reports whether a caller may read or mutate this session.
func (s Session) CanAccess(userID, role string) bool {
	if role == "admin" {
		return true
	}
	return s.ParentID == userID || (s.SitterID != "" && s.SitterID == userID)
}
