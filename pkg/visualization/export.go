package visualization

import (
	"encoding/json"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

// NodeJSON is the wire form of a node. fx/fy mirror x/y because every node
// is pinned.
type NodeJSON struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FX       float64 `json:"fx"`
	FY       float64 `json:"fy"`
	Color    string  `json:"color,omitempty"`
	Label    string  `json:"label,omitempty"`
	Category string  `json:"category,omitempty"`
	Value    string  `json:"value,omitempty"`
	Packets  int64   `json:"packets,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Border   string  `json:"borderColor,omitempty"`
	Evicted  int     `json:"evicted,omitempty"`
}

// LinkJSON is the wire form of a link.
type LinkJSON struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Color  string `json:"color"`
}

// GraphJSON is the wire form of a graph.
type GraphJSON struct {
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	ScaleFactor float64        `json:"scaleFactor"`
	Selected    string         `json:"selected,omitempty"`
	Nodes       []NodeJSON     `json:"nodes"`
	Links       []LinkJSON     `json:"links"`
	Dropped     map[string]int `json:"dropped,omitempty"`
	Skipped     int            `json:"skipped,omitempty"`
}

// Export converts the graph to its wire form.
func (g *Graph) Export(selected traffic.Category) GraphJSON {
	data := GraphJSON{
		Width:       g.Width,
		Height:      g.Height,
		ScaleFactor: g.ScaleFactor,
		Nodes:       make([]NodeJSON, 0, len(g.Nodes)),
		Links:       make([]LinkJSON, 0, len(g.Links)),
		Skipped:     g.Skipped,
	}
	if selected.Valid() {
		data.Selected = string(selected)
	}

	for _, n := range g.Nodes {
		data.Nodes = append(data.Nodes, ExportNode(n))
	}
	for _, l := range g.Links {
		data.Links = append(data.Links, LinkJSON{
			Source: l.SourceID(),
			Target: l.TargetID(),
			Kind:   l.Kind.String(),
			Color:  l.Color,
		})
	}

	if len(g.Dropped) > 0 {
		data.Dropped = make(map[string]int, len(g.Dropped))
		for c, n := range g.Dropped {
			data.Dropped[string(c)] = n
		}
	}
	return data
}

// ExportJSON marshals the wire form of the graph.
func (g *Graph) ExportJSON(selected traffic.Category) ([]byte, error) {
	return json.Marshal(g.Export(selected))
}

// ExportNode converts one node to its wire form.
func ExportNode(n Node) NodeJSON {
	p := n.Position()
	out := NodeJSON{ID: n.ID(), Kind: n.Kind().String(), X: p.X, Y: p.Y, FX: p.X, FY: p.Y}

	switch n := n.(type) {
	case *CategoryBlock:
		out.Category = string(n.Category)
		out.Label = string(n.Category)
		out.Color = n.DefaultColor
		out.Border = n.BorderColor
		out.Width = n.Width
		out.Height = n.Height
		out.Evicted = n.Evicted
	case *SourceNode:
		out.Label = n.IP
		out.Value = n.IP
		out.Color = n.Color
	case *TargetNode:
		out.Category = string(n.Category)
		out.Label = n.Label
		out.Value = n.Target
		out.Packets = n.Packets
		out.Color = n.Color
	case *MoreNode:
		out.Category = string(n.Category)
	}
	return out
}
