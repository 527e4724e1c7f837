package model

import "time"

// RegistrationType is the kind of registration a packet was submitted for.
type RegistrationType string

const (
	RegistrationTypeNew        RegistrationType = "NEW"
	RegistrationTypeUpdate     RegistrationType = "UPDATE"
	RegistrationTypeLost       RegistrationType = "LOST"
	RegistrationTypeResUpdate  RegistrationType = "RES_UPDATE"
	RegistrationTypeActivated  RegistrationType = "ACTIVATED"
	RegistrationTypeDeactivate RegistrationType = "DEACTIVATED"
)

// RegistrationRecord is the sync entry written when a registration client
// announced the packet. It is read-only for the uploader.
type RegistrationRecord struct {
	RegistrationID   string           `json:"registration_id"`
	RegistrationType RegistrationType `json:"registration_type"`
	PacketHashValue  string           `json:"packet_hash_value"` // Hex digest of the encrypted packet, computed at submission
	PacketSize       int64            `json:"packet_size"`
	CreatedAt        time.Time        `json:"created_at"`
}
