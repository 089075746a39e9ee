package visualization

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

func newTestBuilder() *Builder {
	return NewBuilder(WithMeasurer(runeWidth(7)))
}

func TestBuildDNSExample(t *testing.T) {
	records := []traffic.Record{
		{Source: "10.0.0.1", Target: "8.8.8.8", Category: traffic.DNS, Packets: 50, Port: 53},
		{Source: "10.0.0.1", Target: "1.1.1.1", Category: traffic.DNS, Packets: 30, Port: 53},
	}
	g := newTestBuilder().Build(records, 1920, 450)

	require.Len(t, g.Sources, 1)
	require.Len(t, g.Blocks, 4)

	dns := g.Block(traffic.DNS)
	require.Len(t, dns.Targets, 2)
	assert.Equal(t, "8.8.8.8", dns.Targets[0].Target)
	assert.Equal(t, "1.1.1.1", dns.Targets[1].Target)
	assert.Equal(t, g.Sources[0].Color, dns.BorderColor)
	assert.Equal(t, traffic.ColorInternal, g.Block(traffic.Internal).BorderColor)

	require.Len(t, g.Links, 1)
	assert.Equal(t, CategoryLink, g.Links[0].Kind)
	assert.Equal(t, "source_10.0.0.1", g.Links[0].SourceID())
	assert.Equal(t, "category_dns", g.Links[0].TargetID())
	assert.Zero(t, g.DroppedLinks())

	// 4 blocks + 4 more nodes + 1 source + 2 targets
	assert.Len(t, g.Nodes, 11)
	assert.Equal(t, Position{X: 960, Y: 225}, g.Sources[0].Pos)
}

func TestBuildTopTenOfFifteen(t *testing.T) {
	var records []traffic.Record
	for i := 0; i < 15; i++ {
		records = append(records, traffic.Record{
			Source: "10.0.0.1", Target: fmt.Sprintf("203.0.113.%d", i),
			Category: traffic.External, Packets: int64(i + 1), Port: 443,
		})
	}
	// A second source reaching three of the evicted targets and one kept one.
	for _, i := range []int{0, 1, 2, 14} {
		records = append(records, traffic.Record{
			Source: "10.0.0.2", Target: fmt.Sprintf("203.0.113.%d", i),
			Category: traffic.External, Packets: 0, Port: 443,
		})
	}

	g := newTestBuilder().Build(records, 1920, 450)
	ext := g.Block(traffic.External)

	require.Len(t, ext.Targets, 10)
	assert.Equal(t, "203.0.113.14", ext.Targets[0].Target)
	assert.Equal(t, "203.0.113.5", ext.Targets[9].Target)
	assert.Equal(t, 5, ext.Evicted)
	assert.Equal(t, "#FFD83D", ext.BorderColor)

	require.Len(t, g.Links, 2)
	assert.Equal(t, CategoryLink, g.Links[0].Kind)
	assert.Equal(t, TargetLink, g.Links[1].Kind)
	assert.Equal(t, "target_external_203.0.113.14", g.Links[1].TargetID())
	assert.Equal(t, "#0071B2", g.Links[1].Color)
	assert.Equal(t, 3, g.Dropped[traffic.External])
}

func TestBuildEmpty(t *testing.T) {
	g := newTestBuilder().Build(nil, 1920, 450)

	assert.Len(t, g.Blocks, 4)
	assert.Len(t, g.Nodes, 8)
	assert.Empty(t, g.Links)
	assert.Empty(t, g.Sources)
	for _, b := range g.Blocks {
		assert.Equal(t, b.DefaultColor, b.BorderColor)
		assert.Equal(t, BlockMinWidth, b.Width)
	}
}

func TestBuildEvictionGaugeTracksLastGraph(t *testing.T) {
	var records []traffic.Record
	for i := 0; i < 13; i++ {
		records = append(records, traffic.Record{
			Source: "10.0.0.1", Target: fmt.Sprintf("198.51.100.%d", i),
			Category: traffic.External, Packets: int64(i + 1), Port: 443,
		})
	}
	reg := metrics.NewRegistry()
	b := NewBuilder(WithMeasurer(runeWidth(7)), WithMetrics(reg))

	b.Build(records, 1920, 450)
	b.Build(records, 1200, 225)
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.TargetsEvicted.WithLabelValues("external")))

	b.Build(records[:10], 1920, 450)
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.TargetsEvicted.WithLabelValues("external")))
}

func TestBuildLayoutIgnoresHeight(t *testing.T) {
	var records []traffic.Record
	for i := 1; i <= 10; i++ {
		records = append(records,
			traffic.Record{Source: "10.0.0.1", Target: fmt.Sprintf("10.1.0.%d", i), Category: traffic.Internal, Packets: int64(i), Port: 445},
			traffic.Record{Source: "10.0.0.2", Target: fmt.Sprintf("10.2.0.%d", i), Category: traffic.Proxy, Packets: int64(i), Port: 8080},
		)
	}
	b := newTestBuilder()
	full := b.Build(records, 1920, 480)
	half := b.Build(records, 1920, 240)

	assert.Equal(t, 240.0, half.Height)
	for i, n := range full.Nodes {
		assert.Equal(t, n.Position(), half.Nodes[i].Position(), n.ID())
	}
	assert.Equal(t, Position{X: 360, Y: UpperAnchorY}, half.Block(traffic.Internal).Anchor)
	assert.Equal(t, Position{X: 360, Y: LowerAnchorY}, half.Block(traffic.Proxy).Anchor)
	assert.Less(t, half.Block(traffic.Internal).Rect().MaxY, half.Block(traffic.Proxy).Rect().MinY)
}

func TestBuildFallbackDimensions(t *testing.T) {
	g := newTestBuilder().Build(nil, 0, -5)
	assert.Equal(t, ReferenceWidth, g.Width)
	assert.Equal(t, DefaultHeight, g.Height)
	assert.Equal(t, 1.0, g.ScaleFactor)
}

func TestBuildSkipsUnknownCategory(t *testing.T) {
	records := []traffic.Record{
		{Source: "10.0.0.1", Target: "x", Category: "multicast", Packets: 1},
		{Source: "10.0.0.1", Target: "10.0.0.2", Category: traffic.Internal, Packets: 1},
	}
	g := newTestBuilder().Build(records, 1920, 450)
	assert.Equal(t, 1, g.Skipped)
	assert.Len(t, g.Links, 1)
}

func TestGraphLookup(t *testing.T) {
	records := []traffic.Record{
		{Source: "10.0.0.1", Target: "10.0.0.9", Category: traffic.Internal, Packets: 4},
	}
	g := newTestBuilder().Build(records, 1920, 450)

	n, ok := g.Node("target_internal_10.0.0.9")
	require.True(t, ok)
	assert.Equal(t, KindTarget, n.Kind())
	assert.True(t, n.Pinned())

	_, ok = g.Node("target_internal_nope")
	assert.False(t, ok)

	more, ok := g.Node(MoreID(traffic.Proxy))
	require.True(t, ok)
	assert.IsType(t, &MoreNode{}, more)

	assert.Len(t, g.LinksFrom("10.0.0.1"), 1)
	assert.Len(t, g.Targets(), 1)
}

func TestBoundsCoversNodes(t *testing.T) {
	records := []traffic.Record{
		{Source: "10.0.0.1", Target: "10.0.0.9", Category: traffic.Internal, Packets: 4},
		{Source: "10.0.0.2", Target: "8.8.8.8", Category: traffic.DNS, Packets: 4},
	}
	g := newTestBuilder().Build(records, 1920, 450)
	b := g.Bounds()
	for _, n := range g.Nodes {
		assert.True(t, b.Contains(n.Position()), n.ID())
	}
	assert.Equal(t, Rect{}, (&Graph{}).Bounds())
}

func TestExportJSON(t *testing.T) {
	records := []traffic.Record{
		{Source: "10.0.0.1", Target: "8.8.8.8", Category: traffic.DNS, Packets: 50, Port: 53},
	}
	g := newTestBuilder().Build(records, 1920, 450)

	data, err := g.ExportJSON(traffic.DNS)
	require.NoError(t, err)

	var doc GraphJSON
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "dns", doc.Selected)
	assert.Len(t, doc.Nodes, len(g.Nodes))
	require.Len(t, doc.Links, 1)
	assert.Equal(t, "category", doc.Links[0].Kind)

	for _, n := range doc.Nodes {
		assert.Equal(t, n.X, n.FX, n.ID)
		assert.Equal(t, n.Y, n.FY, n.ID)
	}
	assert.Empty(t, g.Export(traffic.None).Selected)
}

// genRecords builds record lists from small integers so that sources,
// targets and categories collide often.
func genRecords() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 4*25*4*7-1)).Map(func(codes []int) []traffic.Record {
		records := make([]traffic.Record, len(codes))
		for i, code := range codes {
			records[i] = traffic.Record{
				Source:   fmt.Sprintf("10.0.0.%d", code%4),
				Target:   fmt.Sprintf("198.51.100.%d", (code/4)%25),
				Category: traffic.Categories[(code/100)%4],
				Packets:  int64((code / 400) % 7),
				Port:     80,
			}
		}
		return records
	})
}

func TestGraphProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	b := newTestBuilder()

	properties.Property("same input gives the same graph", prop.ForAll(
		func(records []traffic.Record, width, height float64) bool {
			a := b.Build(records, width, height).Export(traffic.None)
			c := b.Build(records, width, height).Export(traffic.None)
			return reflect.DeepEqual(a, c)
		},
		genRecords(),
		gen.Float64Range(1, 4000),
		gen.Float64Range(1, 2000),
	))

	properties.Property("each block keeps min(10, distinct positive) targets", prop.ForAll(
		func(records []traffic.Record) bool {
			g := b.Build(records, 1920, 450)
			cls := traffic.Classify(records)
			for _, c := range traffic.Categories {
				positive := 0
				for _, tc := range cls.Aggregates(c) {
					if tc.Packets > 0 {
						positive++
					}
				}
				if len(g.Block(c).Targets) != min(DefaultMaxTargets, positive) {
					return false
				}
			}
			return true
		},
		genRecords(),
	))

	properties.Property("a source-category pair never has both link kinds", prop.ForAll(
		func(records []traffic.Record) bool {
			g := b.Build(records, 1920, 450)
			kinds := make(map[string]map[LinkKind]bool)
			for _, l := range g.Links {
				var c traffic.Category
				switch n := l.Target.(type) {
				case *CategoryBlock:
					c = n.Category
				case *TargetNode:
					c = n.Category
				default:
					return false
				}
				key := l.Source.IP + "|" + string(c)
				if kinds[key] == nil {
					kinds[key] = make(map[LinkKind]bool)
				}
				kinds[key][l.Kind] = true
				if len(kinds[key]) > 1 {
					return false
				}
			}
			return true
		},
		genRecords(),
	))

	properties.Property("every node is pinned and indexed", prop.ForAll(
		func(records []traffic.Record) bool {
			g := b.Build(records, 1920, 450)
			if len(g.Nodes) != 8+len(g.Sources)+len(g.Targets()) {
				return false
			}
			for _, n := range g.Nodes {
				got, ok := g.Node(n.ID())
				if !ok || got != n || !n.Pinned() {
					return false
				}
			}
			return true
		},
		genRecords(),
	))

	properties.TestingRun(t)
}
