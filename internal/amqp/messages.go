package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ExportMessage carries one rendered table view: the header labels and the
// formatted cells of every filtered and sorted row, page size ignored.
type ExportMessage struct {
	JobID     string     `json:"jobId"`
	Title     string     `json:"title"`
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewExportMessage(jobID, title string, header []string, rows [][]string) *ExportMessage {
	return &ExportMessage{
		JobID:     jobID,
		Title:     title,
		Header:    header,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

// Validate rejects messages a sink cannot write: no job id, no header, or
// a row whose width differs from the header.
func (m *ExportMessage) Validate() error {
	if m.JobID == "" {
		return errors.New("export message has no job id")
	}
	if len(m.Header) == 0 {
		return errors.New("export message has no header")
	}
	for i, row := range m.Rows {
		if len(row) != len(m.Header) {
			return fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(m.Header))
		}
	}
	return nil
}

func (m *ExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportMessageFromJSON(data []byte) (*ExportMessage, error) {
	var msg ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
