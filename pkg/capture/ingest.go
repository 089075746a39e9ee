package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

// ErrNotPcap is returned when the input is neither pcap nor pcapng.
var ErrNotPcap = errors.New("input is not a pcap or pcapng capture")

// pcapng section header block type.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Stats describes one ingestion run.
type Stats struct {
	Packets int `json:"packets"`
	// Skipped counts packets without an IP layer.
	Skipped int `json:"skipped"`
	Records int `json:"records"`
}

// Ingester decodes captures into conversation records.
type Ingester struct {
	rules   Rules
	logger  logging.Logger
	metrics *metrics.Registry
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

func WithIngestLogger(l logging.Logger) IngesterOption {
	return func(in *Ingester) { in.logger = logging.OrNop(l) }
}

func WithIngestMetrics(m *metrics.Registry) IngesterOption {
	return func(in *Ingester) { in.metrics = m }
}

// NewIngester creates an ingester classifying with rules.
func NewIngester(rules Rules, opts ...IngesterOption) *Ingester {
	in := &Ingester{rules: rules, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest decodes a capture with the given rules.
func Ingest(r io.Reader, rules Rules) ([]traffic.Record, Stats, error) {
	return NewIngester(rules).Ingest(context.Background(), r)
}

type conversationKey struct {
	src, dst netip.Addr
	port     int
}

// Ingest reads a pcap or pcapng stream and aggregates packets per
// (source, target, target port), in first-seen order. Each packet is
// oriented so the serving side is the target: a reply from a DNS or proxy
// port, or from a lower well-known port, counts toward the request
// direction.
func (in *Ingester) Ingest(ctx context.Context, r io.Reader) ([]traffic.Record, Stats, error) {
	timer := logging.StartTimer(in.logger, "capture ingested", logging.Component("capture"))

	packets, err := newPacketSource(r)
	if err != nil {
		in.fail("open", err)
		return nil, Stats{}, err
	}

	var stats Stats
	index := make(map[conversationKey]int)
	records := make([]traffic.Record, 0)

	for {
		if stats.Packets%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		packet, err := packets.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A truncated final packet ends the capture.
			if errors.Is(err, io.ErrUnexpectedEOF) {
				in.logger.Warn("capture truncated", logging.Int("packets", stats.Packets))
				break
			}
			in.fail("read", err)
			return nil, stats, fmt.Errorf("read packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++

		conv, ok := in.conversation(packet)
		if !ok {
			stats.Skipped++
			continue
		}

		key := conversationKey{src: conv.src, dst: conv.dst, port: conv.dstPort}
		if i, seen := index[key]; seen {
			records[i].Packets++
			continue
		}
		index[key] = len(records)
		records = append(records, traffic.Record{
			Source:   conv.src.String(),
			Target:   conv.dst.String(),
			Category: in.rules.Classify(conv.dst, conv.srcPort, conv.dstPort),
			Packets:  1,
			Port:     conv.dstPort,
		})
	}

	stats.Records = len(records)
	timer.End(logging.Int("packets", stats.Packets), logging.Records(stats.Records))
	if in.metrics != nil {
		in.metrics.RecordIngest(stats.Packets, stats.Records)
	}
	return records, stats, nil
}

func (in *Ingester) fail(stage string, err error) {
	in.logger.Error("capture ingestion failed", logging.String("stage", stage), logging.Error(err))
	if in.metrics != nil {
		in.metrics.RecordIngestError(stage)
	}
}

type conversation struct {
	src, dst         netip.Addr
	srcPort, dstPort int
}

func (in *Ingester) conversation(packet gopacket.Packet) (conversation, bool) {
	var c conversation

	switch ip := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		c.src, _ = netip.AddrFromSlice(ip.SrcIP.To4())
		c.dst, _ = netip.AddrFromSlice(ip.DstIP.To4())
	case *layers.IPv6:
		c.src, _ = netip.AddrFromSlice(ip.SrcIP)
		c.dst, _ = netip.AddrFromSlice(ip.DstIP)
	default:
		return c, false
	}
	if !c.src.IsValid() || !c.dst.IsValid() {
		return c, false
	}

	switch t := packet.TransportLayer().(type) {
	case *layers.TCP:
		c.srcPort, c.dstPort = int(t.SrcPort), int(t.DstPort)
	case *layers.UDP:
		c.srcPort, c.dstPort = int(t.SrcPort), int(t.DstPort)
	}

	if in.isReply(c.srcPort, c.dstPort) {
		c.src, c.dst = c.dst, c.src
		c.srcPort, c.dstPort = c.dstPort, c.srcPort
	}
	return c, true
}

func (in *Ingester) isReply(srcPort, dstPort int) bool {
	if srcPort == 0 || dstPort == 0 {
		return false
	}
	srcService, dstService := in.rules.service(srcPort), in.rules.service(dstPort)
	if srcService != dstService {
		return srcService
	}
	return srcPort < 1024 && srcPort < dstPort
}

type packetReader interface {
	NextPacket() (gopacket.Packet, error)
}

// newPacketSource sniffs the header and opens the matching reader.
func newPacketSource(r io.Reader) (packetReader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPcap, err)
	}

	if bytes.Equal(head, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotPcap, err)
		}
		return newPacketSourceFrom(ng, ng.LinkType()), nil
	}

	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPcap, err)
	}
	return newPacketSourceFrom(pr, pr.LinkType()), nil
}

func newPacketSourceFrom(src gopacket.PacketDataSource, link layers.LinkType) *gopacket.PacketSource {
	ps := gopacket.NewPacketSource(src, link)
	ps.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}
	return ps
}
