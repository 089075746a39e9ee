package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

// Summarize wraps ingested records into a capture summary. The ID is
// derived from the filename so reloading the same file keeps its ID.
func Summarize(filename string, records []traffic.Record, stats Stats) Pcap {
	hostname, _ := os.Hostname()
	return Pcap{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(filename)).String(),
		Filename:  path.Base(filename),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostname,
		Summary: []SummaryEntry{
			{Type: SummaryTotalPackets, TotalPackets: []int64{int64(stats.Packets)}},
			{Type: SummaryIPConversations, Conversations: records},
		},
	}
}

// IsPcapKey reports whether key names a raw capture file.
func IsPcapKey(key string) bool {
	ext := strings.ToLower(path.Ext(key))
	return ext == ".pcap" || ext == ".pcapng" || ext == ".cap"
}

// Catalog holds the captures loaded from a source, in listing order.
type Catalog struct {
	mu     sync.RWMutex
	pcaps  []Pcap
	byID   map[string]int
	labels []string

	source   Source
	ingester *Ingester
	logger   logging.Logger
	metrics  *metrics.Registry
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

func WithCatalogLogger(l logging.Logger) CatalogOption {
	return func(c *Catalog) { c.logger = logging.OrNop(l) }
}

func WithCatalogMetrics(m *metrics.Registry) CatalogOption {
	return func(c *Catalog) { c.metrics = m }
}

// WithIngester sets the ingester used for raw capture files.
func WithIngester(in *Ingester) CatalogOption {
	return func(c *Catalog) { c.ingester = in }
}

// NewCatalog creates an empty catalog reading from source.
func NewCatalog(source Source, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		source: source,
		byID:   make(map[string]int),
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ingester == nil {
		c.ingester = NewIngester(DefaultRules(), WithIngestLogger(c.logger), WithIngestMetrics(c.metrics))
	}
	return c
}

// Load replaces the catalog with every summary document and raw capture
// under prefix. A key that fails to load is logged and skipped.
func (c *Catalog) Load(ctx context.Context, prefix string) error {
	keys, err := c.source.List(ctx, prefix)
	if err != nil {
		return err
	}

	pcaps := make([]Pcap, 0, len(keys))
	for _, key := range keys {
		p, ok, err := c.loadKey(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("skipping capture", logging.Path(key), logging.Error(err))
			continue
		}
		if ok {
			pcaps = append(pcaps, p)
		}
	}

	c.Replace(pcaps)
	c.logger.Info("captures loaded", logging.Int("count", len(pcaps)))
	return nil
}

func (c *Catalog) loadKey(ctx context.Context, key string) (Pcap, bool, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(key), ".json"):
	case IsPcapKey(key):
	default:
		return Pcap{}, false, nil
	}

	rc, err := c.source.Open(ctx, key)
	if err != nil {
		return Pcap{}, false, err
	}
	defer rc.Close()

	if IsPcapKey(key) {
		records, stats, err := c.ingester.Ingest(ctx, rc)
		if err != nil {
			return Pcap{}, false, fmt.Errorf("ingest %s: %w", key, err)
		}
		return Summarize(key, records, stats), true, nil
	}

	p, err := DecodePcap(rc)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordIngestError("decode")
		}
		return Pcap{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	if p.ID == "" {
		p.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
	}
	return p, true, nil
}

// DecodePcap reads one capture summary document.
func DecodePcap(r io.Reader) (Pcap, error) {
	var p Pcap
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Pcap{}, err
	}
	return p, nil
}

// Replace swaps the catalog contents.
func (c *Catalog) Replace(pcaps []Pcap) {
	byID := make(map[string]int, len(pcaps))
	for i, p := range pcaps {
		byID[p.ID] = i
	}
	labels := UniqueLabels(pcaps)

	c.mu.Lock()
	c.pcaps, c.byID, c.labels = pcaps, byID, labels
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetCapturesLoaded(len(pcaps))
	}
}

// Entry is a capture with its tab label.
type Entry struct {
	Pcap
	Label string `json:"label"`
}

// List returns the loaded captures with their unique labels.
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, len(c.pcaps))
	for i, p := range c.pcaps {
		out[i] = Entry{Pcap: p, Label: c.labels[i]}
	}
	return out
}

// Get looks a capture up by ID.
func (c *Catalog) Get(id string) (Pcap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return Pcap{}, false
	}
	return c.pcaps[i], true
}

// Len returns the number of loaded captures.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pcaps)
}
