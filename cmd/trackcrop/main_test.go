package main

import (
	"bytes"
	"context"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackcrop/internal/models"
	"trackcrop/pkg/config"
	"trackcrop/pkg/stackio"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackcrop.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Extraction.ROIWidth, cfg.Extraction.ROIWidth)
}

func TestCropSpotsCommand(t *testing.T) {
	dir := t.TempDir()
	src := models.NewVolume(12, 12, 1, 1, 3)
	for i := range src.Data {
		src.Data[i] = float64(i + 1)
	}
	stack := filepath.Join(dir, "movie")
	require.NoError(t, stackio.WriteStack(stack, src))

	table := filepath.Join(dir, "spots.csv")
	require.NoError(t, os.WriteFile(table, []byte("TRACK_ID,POSITION_X,POSITION_Y,FRAME\n1,3,3,0\n1,4,4,1\n2,8,8,2\n"), 0644))

	cfgPath := filepath.Join(dir, "trackcrop.yaml")
	cfg := config.DefaultConfig()
	cfg.Mosaic.PerRow = 1
	require.NoError(t, config.SaveConfig(cfg, cfgPath))

	out := filepath.Join(dir, "out")
	stdout, err := run(t, "--config", cfgPath, "--quiet", "crop-spots",
		"--stack", stack, "--table", table, "--out", out, "--roi-width", "4", "--roi-height", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Extracted 2 of 2 tracks")

	m, err := stackio.ReadStack(filepath.Join(out, "mosaic"))
	require.NoError(t, err)
	assert.Equal(t, 4, m.Width)
	assert.Equal(t, 4, m.Height, "one track per row from the config file")
	assert.Equal(t, 2, m.Frames)

	names, err := stackio.ListStacks(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"TRACK_ID_1", "TRACK_ID_2", "mosaic"}, names)
}

func TestProjectCommand(t *testing.T) {
	dir := t.TempDir()
	src := models.NewVolume(2, 2, 1, 1, 6)
	for i := range src.Data {
		src.Data[i] = float64(i / 4)
	}
	stack := filepath.Join(dir, "movie")
	require.NoError(t, stackio.WriteStack(stack, src))

	out := filepath.Join(dir, "projected")
	_, err := run(t, "--quiet", "--config", filepath.Join(dir, "none.yaml"), "project",
		"--stack", stack, "--out", out, "--method", "max", "--window", "2", "--block")
	require.NoError(t, err)

	p, err := stackio.ReadStack(out)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Frames)
	assert.Equal(t, 2.0, p.At(0, 0, 0, 0, 0))
	assert.Equal(t, 5.0, p.At(0, 0, 0, 0, 2))
}

func TestPreviewCommandZoom(t *testing.T) {
	dir := t.TempDir()
	src := models.NewVolume(3, 2, 1, 1, 2)
	for i := range src.Data {
		src.Data[i] = float64(i)
	}
	stack := filepath.Join(dir, "movie")
	require.NoError(t, stackio.WriteStack(stack, src))

	out := filepath.Join(dir, "preview")
	_, err := run(t, "--quiet", "--config", filepath.Join(dir, "none.yaml"), "preview",
		"--stack", stack, "--out", out, "--zoom", "2")
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(out, "c00_z000", "frame_0001.jpg"))
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 6, img.Width)
	assert.Equal(t, 4, img.Height)
}

func TestMissingRequiredFlag(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "subtract", "--stack", "x")
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "loud", "sequence", "--dir", "a", "--out", "b")
	assert.ErrorContains(t, err, "invalid log level")
}
