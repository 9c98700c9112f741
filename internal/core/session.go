package core

import "time"

// AuthRecord is the persisted "auth" entry: who is logged in and with
// which credential.
type AuthRecord struct {
	User         User      `json:"user"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Export job states.
const (
	ExportQueued  = "queued"
	ExportWritten = "written"
	ExportFailed  = "failed"
)

// ExportJob records a table view handed to the export queue.
type ExportJob struct {
	ID     string
	Title  string
	Rows   int
	Status string
	// Ref points at the written copy, e.g. a spreadsheet range.
	Ref       string
	CreatedAt time.Time
}
