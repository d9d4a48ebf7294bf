package dto

import "time"

// ExportSyllabusRequest selects the output format.
type ExportSyllabusRequest struct {
	Format string `json:"format" validate:"required,oneof=pdf csv"`
}

// ExportSyllabusResponse returns the signed download token.
type ExportSyllabusResponse struct {
	ExportID  string    `json:"export_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
