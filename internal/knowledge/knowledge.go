package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"bracescarebot/internal/models"
)

// Base holds the orthodontic knowledge corpus. It is loaded once at startup
// and is immutable afterwards, so concurrent lookups need no synchronization.
type Base struct {
	entries []models.KnowledgeEntry
}

// New wraps an already-parsed corpus. Entry order is preserved; lookups
// report matches in this order.
func New(entries []models.KnowledgeEntry) *Base {
	return &Base{entries: entries}
}

// Load reads and validates the corpus file. Any failure here is meant to be
// fatal: the service must not answer without its knowledge base.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}

	var entries []models.KnowledgeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base %s: %w", path, err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("knowledge base %s contains no entries", path)
	}
	for i, e := range entries {
		if e.Topic == "" {
			return nil, fmt.Errorf("knowledge base %s: entry %d has no topic", path, i)
		}
		if len(e.Keywords) == 0 {
			return nil, fmt.Errorf("knowledge base %s: entry %q has no keywords", path, e.Topic)
		}
	}

	return &Base{entries: entries}, nil
}

// Lookup returns every entry whose keywords appear in the message,
// case-insensitively, in corpus order. No match is not an error.
func (b *Base) Lookup(message string) []models.KnowledgeEntry {
	messageLower := strings.ToLower(message)

	var matched []models.KnowledgeEntry
	for _, entry := range b.entries {
		for _, keyword := range entry.Keywords {
			if strings.Contains(messageLower, strings.ToLower(keyword)) {
				matched = append(matched, entry)
				break
			}
		}
	}

	return matched
}

// Len reports the number of loaded entries.
func (b *Base) Len() int {
	return len(b.entries)
}
