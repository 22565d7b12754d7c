package schema

// BatchTable represents the 'core.batch' table
type BatchTable struct {
	Table     string
	ID        string
	Name      string
	Slug      string
	Stage     string
	StartedAt string
	Notes     string
	CreatedAt string
	UpdatedAt string
	DeletedAt string
}

// Batch is the schema definition for core.batch
var Batch = BatchTable{
	Table:     "core.batch",
	ID:        "id",
	Name:      "name",
	Slug:      "slug",
	Stage:     "stage",
	StartedAt: "startedat",
	Notes:     "notes",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
	DeletedAt: "deletedat",
}

// Columns returns all standard column names
func (t BatchTable) Columns() []string {
	return []string{
		t.ID, t.Name, t.Slug, t.Stage, t.StartedAt, t.Notes,
		t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
