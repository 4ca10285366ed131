// Package preset holds the static quality presets understood by the voice model.
package preset

import (
	"errors"
	"fmt"

	"github.com/juanvolpe/voiceJuan/internal/core"
)

// Preset names in menu order.
const (
	UltraFast   = "ultra_fast"
	Fast        = "fast"
	Standard    = "standard"
	HighQuality = "high_quality"
)

const errFmtUnknownPreset = "%w: %q"

// ErrUnknownPreset is returned for a preset name outside the table.
var ErrUnknownPreset = errors.New("unknown preset")

var table = []core.PresetParams{
	{Name: UltraFast, NumAutoregressiveSamples: 16, DiffusionIterations: 30, CondFree: false},
	{Name: Fast, NumAutoregressiveSamples: 96, DiffusionIterations: 80, CondFree: true},
	{Name: Standard, NumAutoregressiveSamples: 256, DiffusionIterations: 200, CondFree: true},
	{Name: HighQuality, NumAutoregressiveSamples: 256, DiffusionIterations: 400, CondFree: true},
}

// Names returns the preset names in menu order.
func Names() []string {
	names := make([]string, 0, len(table))
	for _, p := range table {
		names = append(names, p.Name)
	}

	return names
}

// All returns a copy of the preset table in menu order.
func All() []core.PresetParams {
	out := make([]core.PresetParams, len(table))
	copy(out, table)

	return out
}

// ByName looks up a preset by its name.
func ByName(name string) (core.PresetParams, error) {
	for _, p := range table {
		if p.Name == name {
			return p, nil
		}
	}

	return core.PresetParams{}, fmt.Errorf(errFmtUnknownPreset, ErrUnknownPreset, name)
}

// Position returns the 1-based menu position of a preset name, or 0 if unknown.
func Position(name string) int {
	for i, p := range table {
		if p.Name == name {
			return i + 1
		}
	}

	return 0
}
