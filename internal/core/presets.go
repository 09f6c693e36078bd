package core

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultPreset is the profile used when the caller names none.
const DefaultPreset = "minimal"

// Preset is a named required-field profile. Its Required list names the
// canonical fields a file must provide, checked once against the headers
// and again per record.
type Preset struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
}

var (
	presets   = make(map[string]Preset)
	presetsMu sync.RWMutex
)

// RegisterPreset adds a preset to the registry.
// Panics if a preset with the same name is already registered.
func RegisterPreset(p Preset) {
	presetsMu.Lock()
	defer presetsMu.Unlock()

	if _, exists := presets[p.Name]; exists {
		panic(fmt.Sprintf("preset already registered: %s", p.Name))
	}
	presets[p.Name] = p
}

// GetPreset returns a preset by name.
// Returns false if not found.
func GetPreset(name string) (Preset, bool) {
	presetsMu.RLock()
	defer presetsMu.RUnlock()

	p, ok := presets[name]
	return p, ok
}

// Presets returns all registered presets sorted by name.
func Presets() []Preset {
	presetsMu.RLock()
	defer presetsMu.RUnlock()

	result := make([]Preset, 0, len(presets))
	for _, p := range presets {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

func init() {
	RegisterPreset(Preset{
		Name:        "minimal",
		Description: "Only the question text is required",
		Required:    []string{FieldQuestion},
	})
	RegisterPreset(Preset{
		Name:        "quiz",
		Description: "Graded quizzes: every question needs an answer key",
		Required:    []string{FieldQuestion, FieldCorrectAnswer},
	})
	RegisterPreset(Preset{
		Name:        "exam",
		Description: "Timed exams with scoring metadata",
		Required:    []string{FieldQuestion, FieldCorrectAnswer, FieldPoints, FieldDifficulty},
	})
}
