package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fittrack/pkg/config"
)

type sampleConfig struct {
	Name    string `env:"SAMPLE_NAME" envDefault:"fittrack"`
	Port    int    `env:"SAMPLE_PORT" envDefault:"8080"`
	Enabled bool   `env:"SAMPLE_ENABLED"`
}

type requiredConfig struct {
	Token string `env:"REQUIRED_TOKEN,required"`
}

func TestLoad(t *testing.T) {
	t.Run("nil pointer", func(t *testing.T) {
		var cfg *sampleConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("caches per type", func(t *testing.T) {
		t.Setenv("SAMPLE_NAME", "first")
		var a sampleConfig
		require.NoError(t, config.Load(&a))
		assert.Equal(t, "first", a.Name)
		assert.Equal(t, 8080, a.Port)

		t.Setenv("SAMPLE_NAME", "second")
		var b sampleConfig
		require.NoError(t, config.Load(&b))
		assert.Equal(t, "first", b.Name)
	})
}

func TestParse(t *testing.T) {
	cfg, err := config.Parse[sampleConfig](map[string]string{"SAMPLE_PORT": "9000", "SAMPLE_ENABLED": "true"})
	require.NoError(t, err)
	assert.Equal(t, "fittrack", cfg.Name)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Enabled)

	_, err = config.Parse[requiredConfig](map[string]string{})
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	_, err = config.Parse[sampleConfig](map[string]string{"SAMPLE_PORT": "abc"})
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}
