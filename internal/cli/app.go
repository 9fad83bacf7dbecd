package cli

import (
	"fmt"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/anthropic"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/search"
)

// BuildApp assembles the App from the config file, applying any extra
// options last so callers can override.
func BuildApp(cfg Config, debug bool, extra ...arbor.Option) (*arbor.App, error) {
	logger := createLogger(debug)

	opts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithSearchParams(search.Params{
			BeamWidth: cfg.BeamWidth,
			MaxDepth:  cfg.MaxDepth,
			MaxTokens: cfg.MaxTokens,
		}),
	}

	if cfg.Prompts != "" {
		opts = append(opts, arbor.WithPromptDir(cfg.Prompts))
	}
	if cfg.Redis.Address != "" {
		opts = append(opts, arbor.WithStore(redis.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)))
	}
	if cfg.Model != "" {
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		gw, err := anthropic.New(key, anthropic.WithModel(cfg.Model))
		if err != nil {
			return nil, err
		}
		opts = append(opts, arbor.WithGateway(gw))
	}

	opts = append(opts, extra...)
	return arbor.New(cfg.Template, opts...)
}
