package capture

import (
	"encoding/json"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

const summaryDoc = `{
  "id": "7f1d",
  "filename": "office.pcap",
  "timestamp": "2024-03-01T10:00:00Z",
  "hostname": "probe-1",
  "description": "office uplink",
  "project_number": "P-100",
  "summary": [
    {"type": "total_pkts", "content": [120, 80]},
    {"type": "ip_conversations", "content": [
      {"source": "10.0.0.5", "target": "8.8.8.8", "category": "dns", "packets": 4, "port": 53}
    ]},
    {"type": "protocols", "content": {"tcp": 3}}
  ]
}`

func TestPcap_DecodeSummary(t *testing.T) {
	p, err := DecodePcap(strings.NewReader(summaryDoc))
	require.NoError(t, err)

	assert.Equal(t, "7f1d", p.ID)
	assert.Equal(t, "P-100", p.ProjectNumber)
	assert.Equal(t, []int64{120, 80}, p.TotalPackets())

	records, err := p.IPConversations()
	require.NoError(t, err)
	assert.Equal(t, []traffic.Record{
		{Source: "10.0.0.5", Target: "8.8.8.8", Category: traffic.DNS, Packets: 4, Port: 53},
	}, records)

	// Unknown entries survive a re-encode.
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"protocols"`)
	assert.Contains(t, string(data), `"type":"ip_conversations","content":[{"source":"10.0.0.5"`)
}

func TestPcap_NoConversations(t *testing.T) {
	p := Pcap{Summary: []SummaryEntry{{Type: SummaryTotalPackets, TotalPackets: []int64{1}}}}
	_, err := p.IPConversations()
	assert.ErrorIs(t, err, ErrNoConversations)

	var empty Pcap
	assert.Nil(t, empty.TotalPackets())
}

func TestSummaryEntry_EmptyContent(t *testing.T) {
	data, err := json.Marshal(SummaryEntry{Type: SummaryIPConversations})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ip_conversations","content":[]}`, string(data))
}

func TestUniqueLabels(t *testing.T) {
	pcaps := []Pcap{
		{Filename: "a.pcap"},
		{Filename: "b.pcap"},
		{Filename: "a.pcap"},
		{Filename: "a.pcap"},
		{Filename: "c.pcap"},
	}
	assert.Equal(t,
		[]string{"a.pcap", "b.pcap", "a.pcap(1)", "a.pcap(2)", "c.pcap"},
		UniqueLabels(pcaps))
	assert.Empty(t, UniqueLabels(nil))
}

func TestRules_Classify(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name             string
		dst              string
		srcPort, dstPort int
		want             traffic.Category
	}{
		{"dns by destination", "8.8.8.8", 40000, 53, traffic.DNS},
		{"dns by source", "10.0.0.5", 53, 40000, traffic.DNS},
		{"dns beats internal", "10.0.0.53", 40000, 53, traffic.DNS},
		{"proxy", "10.0.0.1", 40000, 3128, traffic.Proxy},
		{"proxy external host", "203.0.113.9", 40000, 8080, traffic.Proxy},
		{"proxy only by destination", "203.0.113.9", 8080, 443, traffic.External},
		{"internal rfc1918", "172.20.1.1", 40000, 443, traffic.Internal},
		{"internal loopback", "127.0.0.1", 40000, 9000, traffic.Internal},
		{"internal ula", "fd12::1", 40000, 9000, traffic.Internal},
		{"mapped v4", "::ffff:192.168.1.1", 40000, 22, traffic.Internal},
		{"external", "93.184.216.34", 40000, 443, traffic.External},
		{"external v6", "2001:db8::1", 40000, 443, traffic.External},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.Classify(netip.MustParseAddr(tt.dst), tt.srcPort, tt.dstPort)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRules(t *testing.T) {
	r, err := NewRules(5353, []int{9999}, []string{"100.64.0.0/10"})
	require.NoError(t, err)
	assert.Equal(t, traffic.DNS, r.Classify(netip.MustParseAddr("1.1.1.1"), 1, 5353))
	assert.Equal(t, traffic.Proxy, r.Classify(netip.MustParseAddr("1.1.1.1"), 1, 9999))
	assert.Equal(t, traffic.Internal, r.Classify(netip.MustParseAddr("100.100.1.1"), 1, 443))
	assert.Equal(t, traffic.External, r.Classify(netip.MustParseAddr("10.0.0.1"), 1, 443))

	_, err = NewRules(53, nil, []string{"not-a-cidr"})
	assert.Error(t, err)
}
