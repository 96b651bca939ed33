package cli

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/Hallflower20/ttcal/pkg/cache"
	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/history"
	"github.com/Hallflower20/ttcal/pkg/predict"
	"github.com/Hallflower20/ttcal/pkg/skymodel"
)

// cacheDir is the root of the model-prediction cache, set by the
// persistent --cache-dir flag. Empty disables caching.
var cacheDir string

// modelTTL bounds how long a cached prediction is trusted.
const modelTTL = 7 * 24 * time.Hour

func newModelCache() cache.Cache {
	if cacheDir == "" {
		return cache.NewNullCache()
	}
	c, err := cache.NewFileCache(cacheDir)
	if err != nil {
		// A broken cache directory should not block calibration.
		return cache.NewNullCache()
	}
	return c
}

// predictModel computes the full-catalog model visibilities, consulting
// the prediction cache first. The cache key captures everything the
// prediction depends on: the catalog file bytes, the beam, and the array
// geometry.
func predictModel(ctx context.Context, obs *observation, sources []skymodel.Source, skyPath string) (*dataset.Dataset, error) {
	c := newModelCache()
	defer c.Close()

	key, ok := modelKey(obs, skyPath)
	if ok {
		if raw, hit, err := c.Get(ctx, key); err == nil && hit {
			if d, err := decodeModel(obs, raw); err == nil {
				loggerFromContext(ctx).Debug("prediction cache hit", "key", key)
				return d, nil
			}
			// Undecodable entry; drop it and re-predict.
			_ = c.Delete(ctx, key)
		}
	}

	model, err := predict.Visibilities(obs.meta, obs.data.Mode(), obs.data.NTime(), sources, obs.beam)
	if err != nil {
		return nil, err
	}
	if ok {
		if raw, err := encodeModel(model); err == nil {
			_ = c.Set(ctx, key, raw, modelTTL)
		}
	}
	return model, nil
}

// modelKey derives the cache key, or ok=false when any input cannot be
// hashed (e.g. the catalog file vanished between load and predict).
func modelKey(obs *observation, skyPath string) (string, bool) {
	catalog, err := os.ReadFile(skyPath)
	if err != nil {
		return "", false
	}
	geom := struct {
		Frequencies []float64
		UVW         [][3]float64
		PhaseRA     float64
		PhaseDec    float64
		Mode        string
		NTime       int
	}{
		Frequencies: obs.meta.Frequencies(),
		PhaseRA:     obs.meta.PhaseCenter().RA,
		PhaseDec:    obs.meta.PhaseCenter().Dec,
		Mode:        obs.data.Mode().String(),
		NTime:       obs.data.NTime(),
	}
	for i := 0; i < obs.meta.NBaselines(); i++ {
		geom.UVW = append(geom.UVW, obs.meta.UVW(i))
	}
	raw, err := json.Marshal(geom)
	if err != nil {
		return "", false
	}
	return cache.ModelKey(cache.Hash(catalog), obs.beam.Name(), cache.Hash(raw)), true
}

func encodeModel(d *dataset.Dataset) ([]byte, error) {
	flat := d.UnpackNew()
	pairs := make([][2]float64, len(flat))
	for i, z := range flat {
		pairs[i] = [2]float64{real(z), imag(z)}
	}
	return json.Marshal(pairs)
}

func decodeModel(obs *observation, raw []byte) (*dataset.Dataset, error) {
	var pairs [][2]float64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}
	flat := make([]complex128, len(pairs))
	for i, p := range pairs {
		flat[i] = complex(p[0], p[1])
	}
	return dataset.Pack(obs.meta, obs.data.Mode(), flat, obs.data.NTime())
}

// recordRun appends the run to the per-user history file. History is
// provenance, not correctness; failures only log.
func recordRun(ctx context.Context, rec history.Record) {
	store, err := history.NewStore("")
	if err != nil {
		loggerFromContext(ctx).Debug("history unavailable", "error", err)
		return
	}
	if err := store.Append(rec); err != nil {
		loggerFromContext(ctx).Debug("history append failed", "error", err)
	}
}
