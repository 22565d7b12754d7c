package batch

import "time"

// Stage values a batch moves through during its life.
const (
	StageDrying   = "drying"
	StageCuring   = "curing"
	StageFinished = "finished"
)

// Stages lists the valid stage values in progression order.
var Stages = []string{StageDrying, StageCuring, StageFinished}

// Batch represents one tracked production batch.
type Batch struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	Stage     string     `json:"stage"`
	StartedAt time.Time  `json:"started_at"`
	Notes     *string    `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"` // soft-delete tracker
}

// CuringLog is one environmental reading recorded against a batch.
type CuringLog struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batch_id"`
	LoggedAt     time.Time `json:"logged_at"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	Note         *string   `json:"note"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter holds the parameters for a paginated batch search.
type Filter struct {
	Query string // Substring search against name
	Stage string // Exact stage match when set
}

// Global field names for validation
const (
	FieldName        = "name"
	FieldStage       = "stage"
	FieldStartedAt   = "started_at"
	FieldNotes       = "notes"
	FieldTemperature = "temperature_c"
	FieldHumidity    = "humidity_pct"
)
