package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "warn", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Configure(Options{}) })

	l := New("solver")
	l.Debugf("debug %d", 1)
	l.Infow("run", map[string]any{"nodes": 3})
	assert.Empty(t, buf.String())

	l.Warnf("slow node %d", 7)
	l.Errorf("boom")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"component":"solver"`)
	assert.Contains(t, lines[0], `"message":"slow node 7"`)
	assert.Contains(t, lines[1], `"level":"error"`)
}

func TestZerologLogger_StructuredInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "debug", Output: &buf}))
	t.Cleanup(func() { _ = Configure(Options{}) })

	New("app").Infow("plan ready", map[string]any{"status": "OPTIMAL"})
	assert.Contains(t, buf.String(), `"status":"OPTIMAL"`)
}

func TestConfigure_Rejects(t *testing.T) {
	assert.Error(t, Configure(Options{Level: "loud"}))
	assert.Error(t, Configure(Options{Format: "xml"}))
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Debugw("x", nil)
	l.Infow("x", nil)
}
