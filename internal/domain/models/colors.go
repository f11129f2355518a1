// internal/domain/models/colors.go
package models

import "strings"

// DefaultColor is used when neither position nor department has a mapping.
const DefaultColor = "blue"

var positionColors = map[string]string{
	"advisor":        "green",
	"president":      "green",
	"vice-president": "green",
	"member":         "blue",
}

var departmentColors = map[string]string{
	"documentary":       "blue",
	"multimedia":        "purple",
	"event coordinator": "orange",
	"crafting":          "pink",
	"cosplayer":         "indigo",
}

// ColorFor derives a user's color key. A mapped position wins over a mapped
// department; anything else falls back to DefaultColor. Matching ignores
// case and surrounding whitespace.
func ColorFor(position, department string) string {
	if c, ok := positionColors[strings.ToLower(strings.TrimSpace(position))]; ok {
		return c
	}
	if c, ok := departmentColors[strings.ToLower(strings.TrimSpace(department))]; ok {
		return c
	}
	return DefaultColor
}
