package dto

import "github.com/google/uuid"

// InmateIngested is published after a new inmate row is committed.
type InmateIngested struct {
	RunID        uuid.UUID `json:"run_id"`
	InmateID     int64     `json:"inmate_id"`
	NaturalKey   string    `json:"natural_key,omitempty"`
	FullName     string    `json:"full_name"`
	BookedAt     string    `json:"booked_at"`
	SourceURL    string    `json:"source_url"`
	BondTotal    string    `json:"bond_total"`
	ChargeCount  int       `json:"charge_count"`
	HasImage     bool      `json:"has_image"`
	HasEmbedding bool      `json:"has_embedding"`
}
