package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/medlin-app/medlin/internal/config"
	"github.com/medlin-app/medlin/internal/fetcher"
	"github.com/medlin-app/medlin/internal/mapping"
	"github.com/medlin-app/medlin/internal/pipeline"
	"github.com/medlin-app/medlin/internal/store"
	"github.com/medlin-app/medlin/pkg/insee"
)

// appEnv holds the store and the pipeline used by the stats, etablissements
// and serve commands.
type appEnv struct {
	Store    store.Store // nil when caching is disabled
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp validates the configuration for mode, opens the response cache
// and builds the Pipeline. Callers should defer env.Close().
func initApp(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	proj, err := mapping.ByName(c.Projection.Name)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	var cache fetcher.Cache
	if st != nil {
		cache = store.NewResponseCache(st, c.Store.CacheTTL())
	}

	return &appEnv{
		Store:    st,
		Pipeline: pipeline.New(fetcher.FromConfig(c, cache), insee.FromConfig(c), proj),
	}, nil
}

// splitCodes parses a comma-separated code list, dropping blanks.
func splitCodes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeJSON pretty-prints v.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

// writeJSONFile writes v to path.
func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := writeJSON(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}
