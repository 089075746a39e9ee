package capture

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

type pkt struct {
	src, dst         string
	srcPort, dstPort uint16
	tcp              bool
	arp              bool
}

var (
	macA = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	macB = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x02}
)

func frame(t *testing.T, p pkt) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	eth := &layers.Ethernet{SrcMAC: macA, DstMAC: macB}
	if p.arp {
		eth.EthernetType = layers.EthernetTypeARP
		arp := &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   macA,
			SourceProtAddress: net.IP{10, 0, 0, 5},
			DstHwAddress:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
			DstProtAddress:    net.IP{10, 0, 0, 1},
		}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, arp))
		return buf.Bytes()
	}

	src, dst := net.ParseIP(p.src), net.ParseIP(p.dst)
	var network gopacket.SerializableLayer
	var netLayer gopacket.NetworkLayer
	proto := layers.IPProtocolUDP
	if p.tcp {
		proto = layers.IPProtocolTCP
	}
	if v4 := src.To4(); v4 != nil {
		eth.EthernetType = layers.EthernetTypeIPv4
		ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: proto, SrcIP: v4, DstIP: dst.To4()}
		network, netLayer = ip, ip
	} else {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip := &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: proto, SrcIP: src, DstIP: dst}
		network, netLayer = ip, ip
	}

	payload := gopacket.Payload("trafficgraph")
	if p.tcp {
		tcp := &layers.TCP{SrcPort: layers.TCPPort(p.srcPort), DstPort: layers.TCPPort(p.dstPort), Window: 1024}
		require.NoError(t, tcp.SetNetworkLayerForChecksum(netLayer))
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, network, tcp, payload))
	} else {
		udp := &layers.UDP{SrcPort: layers.UDPPort(p.srcPort), DstPort: layers.UDPPort(p.dstPort)}
		require.NoError(t, udp.SetNetworkLayerForChecksum(netLayer))
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, network, udp, payload))
	}
	return buf.Bytes()
}

func capturePcap(t *testing.T, pkts ...pkt) []byte {
	t.Helper()
	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for i, p := range pkts {
		data := frame(t, p)
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(1700000000, int64(i)*1000),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return out.Bytes()
}

func capturePcapNG(t *testing.T, pkts ...pkt) []byte {
	t.Helper()
	var out bytes.Buffer
	w, err := pcapgo.NewNgWriter(&out, layers.LinkTypeEthernet)
	require.NoError(t, err)
	for i, p := range pkts {
		data := frame(t, p)
		ci := gopacket.CaptureInfo{
			Timestamp:      time.Unix(1700000000, int64(i)*1000),
			CaptureLength:  len(data),
			Length:         len(data),
			InterfaceIndex: 0,
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	require.NoError(t, w.Flush())
	return out.Bytes()
}

var mixedTraffic = []pkt{
	{src: "10.0.0.5", dst: "8.8.8.8", srcPort: 40000, dstPort: 53},
	{src: "8.8.8.8", dst: "10.0.0.5", srcPort: 53, dstPort: 40000},
	{src: "10.0.0.5", dst: "10.0.0.1", srcPort: 50000, dstPort: 3128, tcp: true},
	{src: "10.0.0.5", dst: "192.168.1.10", srcPort: 50001, dstPort: 22, tcp: true},
	{src: "192.168.1.10", dst: "10.0.0.5", srcPort: 22, dstPort: 50001, tcp: true},
	{arp: true},
	{src: "10.0.0.5", dst: "93.184.216.34", srcPort: 50002, dstPort: 443, tcp: true},
	{src: "10.0.0.1", dst: "10.0.0.5", srcPort: 3128, dstPort: 50000, tcp: true},
}

func TestIngest_ClassifiesAndAggregates(t *testing.T) {
	records, stats, err := Ingest(bytes.NewReader(capturePcap(t, mixedTraffic...)), DefaultRules())
	require.NoError(t, err)

	want := []traffic.Record{
		{Source: "10.0.0.5", Target: "8.8.8.8", Category: traffic.DNS, Packets: 2, Port: 53},
		{Source: "10.0.0.5", Target: "10.0.0.1", Category: traffic.Proxy, Packets: 2, Port: 3128},
		{Source: "10.0.0.5", Target: "192.168.1.10", Category: traffic.Internal, Packets: 2, Port: 22},
		{Source: "10.0.0.5", Target: "93.184.216.34", Category: traffic.External, Packets: 1, Port: 443},
	}
	assert.Equal(t, want, records)
	assert.Equal(t, Stats{Packets: 8, Skipped: 1, Records: 4}, stats)
}

func TestIngest_PcapNG(t *testing.T) {
	records, stats, err := Ingest(bytes.NewReader(capturePcapNG(t, mixedTraffic...)), DefaultRules())
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, 8, stats.Packets)
}

func TestIngest_IPv6(t *testing.T) {
	data := capturePcap(t,
		pkt{src: "fd00::1", dst: "2001:db8::1", srcPort: 41000, dstPort: 443, tcp: true},
		pkt{src: "fd00::1", dst: "fd00::2", srcPort: 41001, dstPort: 9000},
	)
	records, _, err := Ingest(bytes.NewReader(data), DefaultRules())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2001:db8::1", records[0].Target)
	assert.Equal(t, traffic.External, records[0].Category)
	assert.Equal(t, traffic.Internal, records[1].Category)
}

func TestIngest_SeparatesPorts(t *testing.T) {
	data := capturePcap(t,
		pkt{src: "10.0.0.5", dst: "10.0.0.9", srcPort: 50000, dstPort: 80, tcp: true},
		pkt{src: "10.0.0.5", dst: "10.0.0.9", srcPort: 50001, dstPort: 443, tcp: true},
		pkt{src: "10.0.0.5", dst: "10.0.0.9", srcPort: 50002, dstPort: 80, tcp: true},
	)
	records, _, err := Ingest(bytes.NewReader(data), DefaultRules())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].Packets)
	assert.Equal(t, 443, records[1].Port)
}

func TestIngest_NotPcap(t *testing.T) {
	_, _, err := Ingest(bytes.NewReader([]byte("definitely not a capture")), DefaultRules())
	assert.ErrorIs(t, err, ErrNotPcap)

	_, _, err = Ingest(bytes.NewReader(nil), DefaultRules())
	assert.ErrorIs(t, err, ErrNotPcap)
}

func TestIngest_EmptyCapture(t *testing.T) {
	records, stats, err := Ingest(bytes.NewReader(capturePcap(t)), DefaultRules())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
	assert.Equal(t, 0, stats.Packets)
}

func TestIngest_Truncated(t *testing.T) {
	data := capturePcap(t, mixedTraffic[:3]...)
	records, stats, err := Ingest(bytes.NewReader(data[:len(data)-10]), DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Packets)
	assert.Len(t, records, 1)
}

func TestIngester_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewIngester(DefaultRules()).Ingest(ctx, bytes.NewReader(capturePcap(t, mixedTraffic...)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngester_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	in := NewIngester(DefaultRules(), WithIngestMetrics(reg))

	_, _, err := in.Ingest(context.Background(), bytes.NewReader(capturePcap(t, mixedTraffic...)))
	require.NoError(t, err)
	assert.Equal(t, 8.0, testutil.ToFloat64(reg.IngestPacketsTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(reg.IngestRecordsTotal))

	_, _, err = in.Ingest(context.Background(), bytes.NewReader([]byte("junkjunk")))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.IngestErrorsTotal.WithLabelValues("open")))
}

func TestIsReply(t *testing.T) {
	in := NewIngester(DefaultRules())
	tests := []struct {
		name             string
		srcPort, dstPort int
		want             bool
	}{
		{"dns reply", 53, 40000, true},
		{"dns query", 40000, 53, false},
		{"proxy reply", 8080, 51000, true},
		{"well known reply", 443, 51000, true},
		{"request to well known", 51000, 443, false},
		{"both ephemeral", 51000, 52000, false},
		{"portless", 0, 0, false},
		{"both service ports", 53, 8080, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, in.isReply(tt.srcPort, tt.dstPort))
		})
	}
}
