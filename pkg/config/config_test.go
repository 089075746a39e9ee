package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1920.0, cfg.Canvas.MaxWidth)
	assert.Equal(t, 64.0, cfg.Canvas.Padding)
	assert.Equal(t, 450.0, cfg.Canvas.DefaultHeight)
	assert.Equal(t, 120.0, cfg.Canvas.HeaderOffset)
	assert.Equal(t, 10, cfg.Canvas.MaxTargets)
	assert.Equal(t, 100*time.Millisecond, cfg.Interaction.Debounce)
	assert.Equal(t, []int{3128, 8080, 8888}, cfg.Capture.ProxyPorts)
	assert.Equal(t, 53, cfg.Capture.DNSPort)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestDefaults_DoNotShareSlices(t *testing.T) {
	cfg := Defaults()
	cfg.Capture.ProxyPorts[0] = 1
	assert.Equal(t, 3128, capture.DefaultProxyPorts[0])
}

func TestParse_OverridesDefaults(t *testing.T) {
	doc := `
canvas:
  max_width: 1280
  max_targets: 5
interaction:
  debounce: 250ms
capture:
  proxy_ports: [9999]
server:
  host: 127.0.0.1
  port: 9090
storage:
  bucket: captures
  endpoint: http://localhost:9000
log_level: debug
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 1280.0, cfg.Canvas.MaxWidth)
	assert.Equal(t, 64.0, cfg.Canvas.Padding, "unset fields keep defaults")
	assert.Equal(t, 5, cfg.Canvas.MaxTargets)
	assert.Equal(t, 250*time.Millisecond, cfg.Interaction.Debounce)
	assert.Equal(t, []int{9999}, cfg.Capture.ProxyPorts)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "captures", cfg.Storage.Bucket)
	assert.Equal(t, "debug", cfg.LogLevel)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, []int{9999}, rules.ProxyPorts)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "canvas:\n  colour: red\n",
		"bad yaml":       "canvas: [",
		"bad port":       "server:\n  port: 70000\n",
		"bad cidr":       "capture:\n  internal_nets: [nope]\n",
		"bad level":      "log_level: loud\n",
		"zero debounce":  "interaction:\n  debounce: 0s\n",
		"no storage":     "storage:\n  dir: \"\"\n",
		"missing secret": "storage:\n  access_key: AKIA\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	path := filepath.Join(t.TempDir(), "trafficgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSource_FileDefault(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Dir = t.TempDir()

	src, err := cfg.Source(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &capture.FileSource{}, src)
}
