package ordination

import (
	"go.uber.org/zap"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/options"
)

// Config holds the parameters of the ordination operations. Each operation
// reads only the fields that concern it.
type Config struct {
	// Relative converts abundance rows to proportions before Distance.
	Relative bool
	// Seed seeds NMDS starts and PERMANOVA permutations.
	Seed uint64
	// Tries is the number of NMDS starts; the lowest stress wins.
	Tries int
	// MaxIter bounds the SMACOF iterations of one NMDS start.
	MaxIter int
	// Tolerance stops an NMDS start once stress improves by less.
	Tolerance float64
	// Permutations is the number of PERMANOVA label permutations.
	Permutations int
	Logger       *zap.Logger
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

func defaultConfig() *Config {
	return &Config{
		Tries:        20,
		MaxIter:      300,
		Tolerance:    1e-7,
		Permutations: 999,
		Logger:       zap.NewNop(),
	}
}

// Validate checks the configuration after all options are applied.
func (c *Config) Validate() error {
	if c.Tries < 1 {
		return errs.InvalidArgument("tries must be at least 1, got %d", c.Tries)
	}
	if c.MaxIter < 1 {
		return errs.InvalidArgument("max iterations must be at least 1, got %d", c.MaxIter)
	}
	if !(c.Tolerance >= 0) {
		return errs.InvalidArgument("tolerance must be non-negative, got %g", c.Tolerance)
	}
	if c.Permutations < 1 {
		return errs.InvalidArgument("permutations must be at least 1, got %d", c.Permutations)
	}

	return nil
}

// WithRelative makes Distance compare relative abundances.
func WithRelative() Option {
	return options.NoError(func(cfg *Config) {
		cfg.Relative = true
	})
}

// WithSeed sets the seed of NMDS and PERMANOVA.
func WithSeed(seed uint64) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Seed = seed
	})
}

// WithTries sets the number of NMDS starts.
func WithTries(n int) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Tries = n
	})
}

// WithMaxIter sets the iteration limit of one NMDS start.
func WithMaxIter(n int) Option {
	return options.NoError(func(cfg *Config) {
		cfg.MaxIter = n
	})
}

// WithTolerance sets the NMDS convergence tolerance on stress.
func WithTolerance(tol float64) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Tolerance = tol
	})
}

// WithPermutations sets the number of PERMANOVA permutations.
func WithPermutations(n int) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Permutations = n
	})
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(cfg *Config) {
		if logger != nil {
			cfg.Logger = logger
		}
	})
}
