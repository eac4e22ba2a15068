package domain

import "time"

// CachedAnswer is the value stored under an input fingerprint: the final
// answer plus the metadata needed to replay it unchanged. Entries are
// TTL-bounded and only ever invalidated explicitly; capability or
// datasource edits do not touch existing entries.
type CachedAnswer struct {
	Answer      string     `json:"answer"`
	Sources     []Citation `json:"sources,omitempty"`
	Annotations []string   `json:"annotations,omitempty"`
	StoredAt    time.Time  `json:"stored_at"`
}
