package models

// These structs define the JSON payloads returned by the HTTP ingress and
// the submission reader.

// UploadResponse is the immediate acknowledgement for an accepted upload.
// Processing continues in the background; the outcome is only observable by
// reading the submission record later.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// SubmissionList wraps the recent-submissions read path.
type SubmissionList struct {
	Submissions []Submission `json:"submissions"`
}

// ErrorResponse is the JSON error body for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
