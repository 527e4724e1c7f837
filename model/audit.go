package model

import "time"

const (
	EventIDPacketUploaded = "RPR_402"
	EventIDPacketFailed   = "RPR_405"

	EventNameUpdate    = "UPDATE"
	EventNameException = "EXCEPTION"

	EventTypeBusiness = "BUSINESS"
	EventTypeSystem   = "SYSTEM"
)

// AuditEvent is one entry of the append-only audit log.
type AuditEvent struct {
	AuditID        string    `json:"audit_id"`
	EventID        string    `json:"event_id"`
	EventName      string    `json:"event_name"`
	EventType      string    `json:"event_type"`
	ModuleID       string    `json:"module_id"`
	ModuleName     string    `json:"module_name"`
	Description    string    `json:"description"`
	RegistrationID string    `json:"registration_id"`
	CreatedAt      time.Time `json:"created_at"`
}
