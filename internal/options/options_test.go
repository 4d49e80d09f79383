package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type estimateConfig struct {
	Trials  int
	Label   string
	checked bool
}

func (c *estimateConfig) Validate() error {
	c.checked = true
	if c.Trials <= 0 {
		return errors.New("trials must be positive")
	}

	return nil
}

type plainConfig struct {
	Name string
}

func withTrials(n int) Option[*estimateConfig] {
	return New(func(c *estimateConfig) error {
		if n > 10000 {
			return errors.New("too many trials")
		}
		c.Trials = n

		return nil
	})
}

func withLabel(s string) Option[*estimateConfig] {
	return NoError(func(c *estimateConfig) {
		c.Label = s
	})
}

func TestApply(t *testing.T) {
	t.Run("applies options in order", func(t *testing.T) {
		cfg := &estimateConfig{}
		err := Apply(cfg, withTrials(10), withLabel("first"), withLabel("second"))
		require.NoError(t, err)
		require.Equal(t, 10, cfg.Trials)
		require.Equal(t, "second", cfg.Label)
		require.True(t, cfg.checked)
	})

	t.Run("stops at first error", func(t *testing.T) {
		cfg := &estimateConfig{Trials: 1}
		err := Apply(cfg, withTrials(20000), withLabel("unset"))
		require.EqualError(t, err, "too many trials")
		require.Empty(t, cfg.Label)
		require.False(t, cfg.checked)
	})

	t.Run("runs validator after options", func(t *testing.T) {
		cfg := &estimateConfig{}
		err := Apply(cfg, withLabel("x"))
		require.EqualError(t, err, "trials must be positive")
		require.True(t, cfg.checked)
	})

	t.Run("skips nil options", func(t *testing.T) {
		cfg := &estimateConfig{Trials: 3}
		require.NoError(t, Apply(cfg, nil, withLabel("y")))
		require.Equal(t, "y", cfg.Label)
	})

	t.Run("targets without validator", func(t *testing.T) {
		cfg := &plainConfig{}
		err := Apply(cfg, NoError(func(c *plainConfig) { c.Name = "bray" }))
		require.NoError(t, err)
		require.Equal(t, "bray", cfg.Name)
	})
}
