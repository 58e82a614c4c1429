package model

// ReportResponse is returned by the sink on successful report ingestion.
type ReportResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ReportID   string `json:"report_id"`
	ReceivedAt int64  `json:"received_at"`
}

// ReportErrorResponse is returned by the sink on rejection (4xx errors).
type ReportErrorResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds *int   `json:"retry_after_seconds,omitempty"`
}
