package models

import "time"

// Thought is one journal entry. Thoughts have no identity of their own and
// are only ever listed newest first.
type Thought struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
