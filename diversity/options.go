package diversity

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/options"
)

// Config holds rarefaction run parameters.
type Config struct {
	// Workers bounds the number of trials resampled concurrently.
	Workers int
	// DropShallow excludes samples with fewer reads than the depth instead
	// of failing the run.
	DropShallow bool
	Logger      *zap.Logger
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

func defaultConfig() *Config {
	return &Config{
		Workers: runtime.GOMAXPROCS(0),
		Logger:  zap.NewNop(),
	}
}

// Validate checks the configuration after all options are applied.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errs.InvalidArgument("workers must be at least 1, got %d", c.Workers)
	}

	return nil
}

// WithWorkers sets how many trials run concurrently. Results do not depend
// on it.
func WithWorkers(n int) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Workers = n
	})
}

// WithDropShallow skips samples whose total read count is below the depth,
// logging them at Warn, instead of returning an InsufficientDepthError.
func WithDropShallow() Option {
	return options.NoError(func(cfg *Config) {
		cfg.DropShallow = true
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
