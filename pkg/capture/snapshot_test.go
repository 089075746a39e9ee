package capture

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	records := []traffic.Record{
		{Source: "10.0.0.5", Target: "8.8.8.8", Category: traffic.DNS, Packets: 2, Port: 53},
		{Source: "10.0.0.5", Target: "10.0.0.1", Category: traffic.Proxy, Packets: 7, Port: 3128},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, records))
	got, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestSnapshot_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, nil))
	got, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshot_Invalid(t *testing.T) {
	tests := map[string][]byte{
		"empty":     nil,
		"no magic":  []byte("hello"),
		"bad block": append([]byte("TGS1"), 0xff, 0xff, 0xff),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadSnapshot(bytes.NewReader(data))
			assert.ErrorIs(t, err, ErrBadSnapshot)
		})
	}
}
