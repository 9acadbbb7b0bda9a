package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		Samples: []sim.Sample{
			{Time: 0.5, Progress: 0.9, Running: true, Target: 10, Passed: 9, Inactive: 91, Released: 1, Reseeds: 1},
			{Time: 1.0, Progress: 0.8, Running: true, Target: 20, Passed: 20, Inactive: 80, Released: 1, Reseeds: 1, Occupancy: 1},
		},
		Metrics:    map[string]float64{"final_passed": 20, "max_lag": 1.5},
		StepsTaken: 2,
	}
}

func saveRun(t *testing.T, st *Store, preset string) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Physics.Seed = 42
	run := sim.Config{Dt: 0.5, Duration: 1, Width: 200, Height: 400}
	id, err := st.Save(preset, cfg, run, testResult())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	id := saveRun(t, st, "classic")

	meta, err := st.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "classic", meta.Preset)
	assert.Equal(t, int64(42), meta.Seed)
	assert.Equal(t, 2, meta.Steps)
	assert.Equal(t, 20.0, meta.Metrics["final_passed"])

	samples, err := st.LoadSamples(id)
	require.NoError(t, err)
	assert.Equal(t, testResult().Samples, samples)

	cfg, err := st.LoadConfig(id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Physics.Seed)
}

func TestStoreSamplesHeader(t *testing.T) {
	st := New(t.TempDir())
	id := saveRun(t, st, "")

	data, err := os.ReadFile(filepath.Join(st.Dir(), id, samplesFile))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("time,progress,running,target,passed")), "got %q", data[:40])
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	a := saveRun(t, st, "classic")
	b := saveRun(t, st, "fine")
	require.NoError(t, os.MkdirAll(filepath.Join(st.Dir(), "junk"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{a, b}, ids)

	latest, err := st.Latest()
	require.NoError(t, err)
	assert.Equal(t, runs[0].ID, latest)
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())

	_, err := st.Load("nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = st.LoadSamples("nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = st.LoadConfig("nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = st.Latest()
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	id := saveRun(t, st, "coarse")

	var buf bytes.Buffer
	require.NoError(t, st.Export(&buf, id))

	var out ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, id, out.Metadata.ID)
	assert.Len(t, out.Samples, 2)

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, st.ExportFile(path, id))
	assert.FileExists(t, path)
}

func TestCatalog(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	saveRun(t, st, "classic")
	saveRun(t, st, "fine")

	cat, err := OpenCatalog(dir)
	require.NoError(t, err)
	defer cat.Close()

	ctx := context.Background()
	n, err := cat.Rebuild(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := cat.Query(ctx, "", false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fine, err := cat.Query(ctx, "fine", true, 10)
	require.NoError(t, err)
	require.Len(t, fine, 1)
	assert.Equal(t, "fine", fine[0].Preset)
	assert.Equal(t, 1.5, fine[0].MaxLag)
	assert.Equal(t, config.DefaultParticleCount, fine[0].Particles)

	meta, err := st.Load(fine[0].ID)
	require.NoError(t, err)
	require.NoError(t, cat.Add(ctx, *meta))
	all, err = cat.Query(ctx, "", false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2, "re-adding a run should replace it")
}
