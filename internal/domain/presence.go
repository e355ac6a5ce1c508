// Package domain contains entity without logic, just meta-data
package domain

// Presence describes what media a connection currently offers to its room.
type Presence struct {
	Profile map[string]any `json:"profile"`
	Video   bool           `json:"video"`
	Audio   bool           `json:"audio"`
	Screen  bool           `json:"screen"`
}

// NewPresence returns the flags every connection starts with.
func NewPresence() Presence {
	return Presence{
		Profile: map[string]any{},
		Video:   true,
	}
}
