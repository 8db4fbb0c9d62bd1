package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calltree/internal/core/config"
	apperrors "calltree/internal/core/errors"
)

const pySample = `def main():
    setup()
    run()

def setup():
    load_config()

def run():
    step()
    step()

def step():
    pass

def load_config():
    pass
`

func newTestApp(t *testing.T, cacheEnabled bool) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Enabled = cacheEnabled
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyze_EndToEnd(t *testing.T) {
	a := newTestApp(t, false)
	path := writeSource(t, "main.py", pySample)

	report, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "python", report.Language)
	assert.Len(t, report.Functions, 5)
	assert.Equal(t, 5, report.Summary.Functions)
	assert.Equal(t, 1, report.Summary.Roots)
	assert.Equal(t, 0, report.Summary.Orphans)
	// main->setup, main->run, setup->load_config, run->step (collapsed).
	assert.Equal(t, 4, report.Summary.Edges)
	assert.NotEmpty(t, report.Tree)
	assert.Contains(t, report.Tree[0], "main (line 1)")
}

func TestAnalyze_CacheHitIsIdentical(t *testing.T) {
	a := newTestApp(t, true)
	path := writeSource(t, "main.py", pySample)

	first, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	second, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)

	assert.Equal(t, first.Functions, second.Functions)
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, first.Tree, second.Tree)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestAnalyze_CacheInvalidatedOnEdit(t *testing.T) {
	a := newTestApp(t, true)
	path := writeSource(t, "main.py", pySample)

	first, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("def only():\n    pass\n"), 0o644))
	second, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.False(t, second.CacheHit)
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 1, second.Summary.Functions)
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newTestApp(t, false)
	path := writeSource(t, "main.py", pySample)

	first, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first.Tree, second.Tree)
	assert.Equal(t, first.Edges, second.Edges)
}

func TestAnalyze_EmptyFile(t *testing.T) {
	a := newTestApp(t, false)
	path := writeSource(t, "empty.py", "")

	report, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.Functions)
	assert.Equal(t, 0, report.Summary.Roots)
	assert.Equal(t, 0, report.Summary.Orphans)
	assert.Equal(t, 0, report.Summary.Edges)
	assert.Empty(t, report.Tree)
}

func TestAnalyze_TwoRootsMultiLineHeader(t *testing.T) {
	a := newTestApp(t, false)
	path := writeSource(t, "two.py", "def greet(name):\n    pass\n\ndef add(\n    x,\n    y,\n):\n    return x + y\n")

	report, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, report.Functions, 2)
	assert.Equal(t, 2, report.Summary.Roots)
	assert.Equal(t, 0, report.Summary.Edges)
	assert.Equal(t, "name", report.Functions[0].Params)
	assert.Equal(t, "x, y,", report.Functions[1].Params)
}

func TestAnalyze_UnsupportedLanguage(t *testing.T) {
	a := newTestApp(t, false)
	path := writeSource(t, "notes.txt", "hello")

	_, err := a.Analyze(context.Background(), path)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedLanguage))
}

func TestAnalyze_MissingFile(t *testing.T) {
	a := newTestApp(t, false)

	_, err := a.Analyze(context.Background(), filepath.Join(t.TempDir(), "nope.py"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestAnalyze_MalformedHeaderDegradesGracefully(t *testing.T) {
	a := newTestApp(t, false)
	path := writeSource(t, "broken.py", "def fine():\n    pass\n\ndef broken(a,\n    b,\n")

	report, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, report.Functions, 2)
	assert.False(t, report.Functions[0].Malformed)
	assert.True(t, report.Functions[1].Malformed)
}

func TestPreviousRun(t *testing.T) {
	a := newTestApp(t, true)
	path := writeSource(t, "main.py", pySample)

	_, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)

	run, ok := a.PreviousRun(path)
	require.True(t, ok)
	assert.Equal(t, 5, run.Functions)
	assert.Equal(t, 1, run.Roots)
}
