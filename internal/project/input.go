package project

import "time"

// Input records one export registered for a role.
type Input struct {
	ID      string    `json:"id"`
	Role    string    `json:"role"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Rows    int       `json:"rows"`
	Columns []string  `json:"columns"`
	AddedAt time.Time `json:"added_at"`
}
