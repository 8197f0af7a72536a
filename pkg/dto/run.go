package dto

import "github.com/google/uuid"

// RunSummary is the end-of-run report of one crawl.
type RunSummary struct {
	RunID          uuid.UUID `json:"run_id"`
	StartedAt      string    `json:"started_at"`
	FinishedAt     string    `json:"finished_at"`
	Candidates     int       `json:"candidates"`
	Skipped        int       `json:"skipped"`
	ExtractFailed  int       `json:"extract_failed"`
	Inserted       int       `json:"inserted"`
	Failed         int       `json:"failed"`
	Backfilled     int       `json:"backfilled"`
	BackfillFailed int       `json:"backfill_failed"`
	KnownInmates   int64     `json:"known_inmates"`
	Error          string    `json:"error,omitempty"`
}

type RunTriggerResponse struct {
	Status string `json:"status"`
}
