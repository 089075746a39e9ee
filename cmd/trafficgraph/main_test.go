package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

const recordsDoc = `[
  {"source": "10.0.0.1", "target": "8.8.8.8", "category": "dns", "packets": 50, "port": 53},
  {"source": "10.0.0.2", "target": "10.0.0.30", "category": "internal", "packets": 7, "port": 445}
]`

func TestDecodeRecords(t *testing.T) {
	records, err := decodeRecords([]byte(recordsDoc))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	summary := `{"id":"x","filename":"a.pcap","summary":[{"type":"ip_conversations","content":` + recordsDoc + `}]}`
	records, err = decodeRecords([]byte(summary))
	require.NoError(t, err)
	assert.Equal(t, traffic.DNS, records[0].Category)

	_, err = decodeRecords([]byte(`{"id":"x","summary":[]}`))
	assert.ErrorIs(t, err, capture.ErrNoConversations)

	_, err = decodeRecords([]byte(`[{"source":"not-an-ip","target":"x","category":"dns"}]`))
	assert.ErrorContains(t, err, "record 0")

	_, err = decodeRecords([]byte(`  `))
	assert.Error(t, err)
	_, err = decodeRecords([]byte(`"text"`))
	assert.Error(t, err)
}

func TestRunSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(recordsDoc), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), path, options{width: 1984, height: 570}, &out))
	assert.Contains(t, out.String(), "graph 1920x450, 2 sources")
	assert.Contains(t, out.String(), "dns")
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.json")
	require.NoError(t, os.WriteFile(path, []byte(recordsDoc), 0o644))

	opts := options{
		width:    864,
		height:   400,
		selected: traffic.DNS,
		out:      filepath.Join(dir, "graph.png"),
		json:     filepath.Join(dir, "graph.json"),
	}
	require.NoError(t, run(context.Background(), path, opts, &bytes.Buffer{}))

	info, err := os.Stat(opts.out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	data, err := os.ReadFile(opts.json)
	require.NoError(t, err)
	var g visualization.GraphJSON
	require.NoError(t, json.Unmarshal(data, &g))
	assert.Equal(t, "dns", g.Selected)
	assert.Equal(t, 140.0, g.Height)
}

func TestRunEmptyRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	err := run(context.Background(), path, options{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, capture.ErrNoConversations)
}

func TestSnapshotCache(t *testing.T) {
	dir := t.TempDir()
	pcapPath := filepath.Join(dir, "x.pcap")
	snap := pcapPath + capture.SnapshotExt

	records := []traffic.Record{{Source: "10.0.0.1", Target: "8.8.8.8", Category: traffic.DNS, Packets: 2, Port: 53}}
	require.NoError(t, os.WriteFile(pcapPath, []byte("not read while the snapshot is fresh"), 0o644))
	require.NoError(t, writeSnapshot(snap, records))

	l := &loader{cache: true, logger: logging.NewNopLogger()}
	got, ok := l.readSnapshot(pcapPath, snap)
	require.True(t, ok)
	assert.Equal(t, records, got)

	_, ok = l.readSnapshot(pcapPath, filepath.Join(dir, "missing"+capture.SnapshotExt))
	assert.False(t, ok)
}
