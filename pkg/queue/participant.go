package queue

import "strings"

// DefaultMaxSize is the capacity of a queue when none is configured.
const DefaultMaxSize = 6

// Participant is an enrolled identity. The registry only stores and echoes it.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// NormalizeName returns the registry key for a queue name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
