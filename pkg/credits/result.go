package credits

import (
	"encoding/json"
	"fmt"
	"time"
)

// BatchError describes a batch that failed and was rolled back.
type BatchError struct {
	BatchID string `json:"batchId"`
	Offset  int    `json:"offset"`
	Size    int    `json:"size"`
	Error   string `json:"error"`
}

func newBatchError(offset, size int, err error) BatchError {
	return BatchError{
		BatchID: batchID(offset),
		Offset:  offset,
		Size:    size,
		Error:   err.Error(),
	}
}

func batchID(offset int) string {
	return fmt.Sprintf("batch_%d", offset)
}

// Result is the outcome of one reconciliation run.
type Result struct {
	Success                 bool         `json:"success"`
	Message                 string       `json:"message,omitempty"`
	TotalUsers              int          `json:"totalUsers"` // free users found, including those already credited
	SuccessCount            int          `json:"successCount"`
	ErrorCount              int          `json:"errorCount"`
	CreditsPerUser          int64        `json:"creditsPerUser"`
	TotalCreditsDistributed int64        `json:"totalCreditsDistributed"`
	QuotaUpdateSuccessCount int          `json:"quotaUpdateSuccessCount"`
	QuotaUpdateErrorCount   int          `json:"quotaUpdateErrorCount"`
	Errors                  []BatchError `json:"errors,omitempty"`
	QuotaErrors             []BatchError `json:"quotaErrors,omitempty"`
	Period                  string       `json:"period"`
	StartedAt               time.Time    `json:"startedAt"`
	FinishedAt              time.Time    `json:"finishedAt"`
}

func failure(message string) Result {
	return Result{Success: false, Message: message}
}

// MarshalJSON emits only success and message for failed runs.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{Message: r.Message})
	}
	type plain Result
	p := plain(r)
	p.Message = ""
	return json.Marshal(p)
}
