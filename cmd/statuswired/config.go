package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/zzstoatzz/statuswire/core"
)

// fileConfigLoader feeds core's cfgx provider from an optional JSON file. A
// blank path yields an empty layer, leaving the built-in defaults in charge.
type fileConfigLoader struct {
	path string
}

func (l fileConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.path)
	if path == "" {
		return map[string]any{}, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("statuswired: read config %s: %w", path, err)
	}
	values := map[string]any{}
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("statuswired: parse config %s: %w", path, err)
	}
	return values, nil
}

func loadConfig(ctx context.Context, path string) (core.Config, error) {
	provider := core.NewCfgxConfigProvider(fileConfigLoader{path: path})
	return provider.Load(ctx, core.DefaultConfig())
}

var _ core.RawConfigLoader = fileConfigLoader{}
