package models

// KnowledgeEntry is one topic of the curated orthodontic corpus.
// Entries are loaded once at startup and never mutated while serving.
type KnowledgeEntry struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
	Content  string   `json:"content"`
	Tips     []string `json:"tips,omitempty"`
}
