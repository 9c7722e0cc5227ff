package queue

// QueryJobMsg asks the worker to process one submitted query job.
type QueryJobMsg struct {
	JobID string `json:"job_id"`
}

// IngestDocumentMsg asks the worker to chunk and embed one uploaded
// document.
type IngestDocumentMsg struct {
	DocumentID string `json:"document_id"`
}
