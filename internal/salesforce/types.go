package salesforce

import (
	"fmt"
	"net/http"
)

// Bulk API 2.0 query job states.
const (
	JobStateUploadComplete = "UploadComplete"
	JobStateInProgress     = "InProgress"
	JobStateJobComplete    = "JobComplete"
	JobStateFailed         = "Failed"
	JobStateAborted        = "Aborted"
)

// locatorDone is the literal value of the Sforce-Locator header when a job's
// result set is exhausted.
const locatorDone = "null"

// tokenResponse is the OAuth username-password grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	TokenType   string `json:"token_type"`
}

// tokenError is the OAuth error response.
type tokenError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// QueryResponse is one page of a synchronous SOQL query. Records carry the
// raw field values plus a synthetic "attributes" object that callers drop.
type QueryResponse struct {
	TotalSize      int                      `json:"totalSize"`
	Done           bool                     `json:"done"`
	NextRecordsURL string                   `json:"nextRecordsUrl"`
	Records        []map[string]interface{} `json:"records"`
}

// BulkJob is the server-side representation of a Bulk API 2.0 query job.
type BulkJob struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	Operation     string `json:"operation"`
	State         string `json:"state"`
	CreatedDate   string `json:"createdDate"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	NumberRecords int64  `json:"numberRecordsProcessed,omitempty"`
}

// bulkJobRequest creates a query job.
type bulkJobRequest struct {
	Operation string `json:"operation"`
	Query     string `json:"query"`
}

// bulkJobAbort transitions a job to Aborted.
type bulkJobAbort struct {
	State string `json:"state"`
}

// APIError is a non-2xx response from the Salesforce API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("salesforce API error (status %d): %s", e.StatusCode, e.Body)
}

// Temporary reports whether the error is transient and worth retrying at a
// higher level. 4xx responses other than 429/408 are terminal.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return e.StatusCode >= 500
}
