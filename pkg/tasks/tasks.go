// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentTask represents the data structure for a document ingestion job.
type DocumentTask struct {
	DocID       string `json:"doc_id"`
	AssistantID string `json:"assistant_id"`
	UserID      uint   `json:"user_id"`
	SourceKind  string `json:"source_kind"`
	SourceRef   string `json:"source_ref"`
	Title       string `json:"title"`
}
