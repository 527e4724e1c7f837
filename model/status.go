package model

import "time"

// Registration lifecycle status codes.
const (
	StatusProcessing = "PROCESSING"
	StatusReprocess  = "REPROCESS"
	StatusRejected   = "REJECTED"
	StatusFailed     = "FAILED"
)

// Latest transaction status codes.
const (
	TransactionStatusSuccess   = "SUCCESS"
	TransactionStatusFailed    = "FAILED"
	TransactionStatusReprocess = "REPROCESS"
	TransactionStatusError     = "ERROR"
)

const (
	TransactionTypeUploadPacket = "UPLOAD_PACKET"
	ModuleNamePacketUpload      = "PACKET_UPLOAD"
	SystemUser                  = "REGPROC_SYSTEM"
)

// StatusRecord is the lifecycle row of a registration. It is created by the
// sync stage and transitioned by every later stage.
type StatusRecord struct {
	RegistrationID              string    `json:"registration_id"`
	StatusCode                  string    `json:"status_code"`
	SubStatusCode               string    `json:"sub_status_code"`
	StatusComment               string    `json:"status_comment"`
	LatestTransactionTypeCode   string    `json:"latest_transaction_type_code"`
	LatestTransactionStatusCode string    `json:"latest_transaction_status_code"`
	RegistrationStageName       string    `json:"registration_stage_name"`
	RetryCount                  *int      `json:"retry_count"` // nil until a stage has attempted the registration
	UpdatedBy                   string    `json:"updated_by"`
	UpdatedAt                   time.Time `json:"updated_at"`
}
