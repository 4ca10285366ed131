package preset_test

import (
	"testing"

	"github.com/juanvolpe/voiceJuan/internal/preset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames_MenuOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"ultra_fast", "fast", "standard", "high_quality"},
		preset.Names(),
	)
}

func TestByName(t *testing.T) {
	t.Parallel()

	p, err := preset.ByName(preset.Standard)
	require.NoError(t, err)
	assert.Equal(t, 256, p.NumAutoregressiveSamples)
	assert.Equal(t, 200, p.DiffusionIterations)
	assert.True(t, p.CondFree)

	_, err = preset.ByName("turbo")
	require.ErrorIs(t, err, preset.ErrUnknownPreset)
}

func TestAll_ReturnsCopy(t *testing.T) {
	t.Parallel()

	all := preset.All()
	all[0].Name = "mutated"

	assert.Equal(t, preset.UltraFast, preset.All()[0].Name)
	assert.Equal(t, 2, preset.Position(preset.Fast))
	assert.Equal(t, 0, preset.Position("nope"))
}
