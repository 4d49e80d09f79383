package curvefit

import (
	"go.uber.org/zap"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/options"
)

// Config selects the candidate models of a fit.
type Config struct {
	Models []ModelType
	Logger *zap.Logger
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

func defaultConfig() *Config {
	return &Config{
		Models: []ModelType{ModelTypeLogarithmic, ModelTypePower, ModelTypeMichaelisMenten},
		Logger: zap.NewNop(),
	}
}

// Validate checks the configuration after all options are applied.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return errs.InvalidArgument("no candidate models")
	}
	for _, mt := range c.Models {
		if _, ok := modelTypeNames[mt]; !ok {
			return errs.InvalidArgument("unknown model type %d", int(mt))
		}
	}

	return nil
}

// WithModels restricts the fit to the given model types.
func WithModels(types ...ModelType) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Models = types
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
