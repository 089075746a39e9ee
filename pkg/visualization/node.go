package visualization

import (
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

// NodeKind is the discriminator of the Node union.
type NodeKind int

const (
	KindCategory NodeKind = iota
	KindSource
	KindTarget
	KindMore
)

func (k NodeKind) String() string {
	switch k {
	case KindCategory:
		return "category"
	case KindSource:
		return "source"
	case KindTarget:
		return "target"
	case KindMore:
		return "more"
	default:
		return "unknown"
	}
}

// Node is one of *CategoryBlock, *SourceNode, *TargetNode or *MoreNode.
// The set is closed; switch on the concrete type.
type Node interface {
	ID() string
	Kind() NodeKind
	Position() Position
	// Pinned is always true: no node is ever moved by a simulation.
	Pinned() bool
	sealed()
}

// Node identifiers

func CategoryID(c traffic.Category) string { return "category_" + string(c) }
func SourceID(ip string) string            { return "source_" + ip }
func MoreID(c traffic.Category) string     { return "more_" + string(c) }
func TargetID(c traffic.Category, target string) string {
	return "target_" + string(c) + "_" + target
}

// CategoryBlock is the rectangle grouping the top targets of a category.
type CategoryBlock struct {
	Category     traffic.Category
	Anchor       Position
	Width        float64
	Height       float64
	DefaultColor string
	// BorderColor is the color of the first source covering the whole
	// category, else DefaultColor.
	BorderColor string
	Targets     []*TargetNode
	More        *MoreNode
	// Evicted counts distinct targets of the category that are not drawn.
	Evicted int
}

func (b *CategoryBlock) ID() string         { return CategoryID(b.Category) }
func (b *CategoryBlock) Kind() NodeKind     { return KindCategory }
func (b *CategoryBlock) Position() Position { return b.Anchor }
func (b *CategoryBlock) Pinned() bool       { return true }
func (*CategoryBlock) sealed()              {}

// Rect returns the block outline.
func (b *CategoryBlock) Rect() Rect {
	return RectAround(b.Anchor, b.Width, b.Height)
}

// SourceNode is a unique source IP on the centre line.
type SourceNode struct {
	IP    string
	Pos   Position
	Color string
	// Index is the first-appearance rank of the source.
	Index int
}

func (s *SourceNode) ID() string         { return SourceID(s.IP) }
func (s *SourceNode) Kind() NodeKind     { return KindSource }
func (s *SourceNode) Position() Position { return s.Pos }
func (s *SourceNode) Pinned() bool       { return true }
func (*SourceNode) sealed()              {}

// TargetNode is one retained target inside its category block.
type TargetNode struct {
	Category traffic.Category
	// Target is the full address; Label is what gets painted.
	Target  string
	Label   string
	Packets int64
	Rank    int
	Pos     Position
	Color   string
}

func (t *TargetNode) ID() string         { return TargetID(t.Category, t.Target) }
func (t *TargetNode) Kind() NodeKind     { return KindTarget }
func (t *TargetNode) Position() Position { return t.Pos }
func (t *TargetNode) Pinned() bool       { return true }
func (*TargetNode) sealed()              {}

// MoreNode toggles the detail table of its category.
type MoreNode struct {
	Category traffic.Category
	Pos      Position
}

func (m *MoreNode) ID() string         { return MoreID(m.Category) }
func (m *MoreNode) Kind() NodeKind     { return KindMore }
func (m *MoreNode) Position() Position { return m.Pos }
func (m *MoreNode) Pinned() bool       { return true }
func (*MoreNode) sealed()              {}

// LinkKind tells a category edge from a target edge.
type LinkKind int

const (
	// CategoryLink runs from a source to a whole category block.
	CategoryLink LinkKind = iota
	// TargetLink runs from a source to one retained target.
	TargetLink
)

func (k LinkKind) String() string {
	if k == CategoryLink {
		return "category"
	}
	return "target"
}

// Link is an edge from a source. Target is a *CategoryBlock for
// CategoryLink and a *TargetNode for TargetLink.
type Link struct {
	Kind   LinkKind
	Source *SourceNode
	Target Node
	Color  string
}

func (l Link) SourceID() string { return l.Source.ID() }
func (l Link) TargetID() string { return l.Target.ID() }

// ID identifies a link by its endpoints.
func (l Link) ID() string { return l.SourceID() + "->" + l.TargetID() }

// TruncateLabel shortens a target for display, keeping LabelLimit runes.
func TruncateLabel(target string) string {
	runes := []rune(target)
	if len(runes) <= LabelLimit {
		return target
	}
	return string(runes[:LabelLimit]) + LabelEllipsis
}
