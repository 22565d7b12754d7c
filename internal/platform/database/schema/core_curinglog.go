package schema

// CuringLogTable represents the 'core.curinglog' table
type CuringLogTable struct {
	Table        string
	ID           string
	BatchID      string
	LoggedAt     string
	TemperatureC string
	HumidityPct  string
	Note         string
	CreatedAt    string
}

// CuringLog is the schema definition for core.curinglog
var CuringLog = CuringLogTable{
	Table:        "core.curinglog",
	ID:           "id",
	BatchID:      "batchid",
	LoggedAt:     "loggedat",
	TemperatureC: "temperaturec",
	HumidityPct:  "humiditypct",
	Note:         "note",
	CreatedAt:    "createdat",
}

// Columns returns all standard column names
func (t CuringLogTable) Columns() []string {
	return []string{
		t.ID, t.BatchID, t.LoggedAt, t.TemperatureC, t.HumidityPct, t.Note, t.CreatedAt,
	}
}
