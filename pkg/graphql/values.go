package graphql

import (
	"errors"
	"slices"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/detail"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// The default resolver reads map keys, so results are flattened into maps
// of plain scalars before they reach the executor.

func pcapValue(e capture.Entry) map[string]any {
	totals := e.TotalPackets()
	packets := make([]float64, len(totals))
	for i, n := range totals {
		packets[i] = float64(n)
	}

	v := map[string]any{
		"id":            e.ID,
		"label":         e.Label,
		"filename":      e.Filename,
		"timestamp":     e.Timestamp,
		"hostname":      e.Hostname,
		"description":   e.Description,
		"projectNumber": e.ProjectNumber,
		"totalPackets":  packets,
		"conversations": nil,
	}
	if records, err := e.IPConversations(); !errors.Is(err, capture.ErrNoConversations) {
		v["conversations"] = len(records)
	}
	return v
}

func graphValue(g visualization.GraphJSON) map[string]any {
	nodes := make([]map[string]any, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = map[string]any{
			"id":          n.ID,
			"kind":        n.Kind,
			"x":           n.X,
			"y":           n.Y,
			"color":       n.Color,
			"label":       n.Label,
			"category":    n.Category,
			"value":       n.Value,
			"packets":     float64(n.Packets),
			"width":       n.Width,
			"height":      n.Height,
			"borderColor": n.Border,
			"evicted":     n.Evicted,
		}
	}

	links := make([]map[string]any, len(g.Links))
	for i, l := range g.Links {
		links[i] = map[string]any{
			"source": l.Source,
			"target": l.Target,
			"kind":   l.Kind,
			"color":  l.Color,
		}
	}

	cats := make([]string, 0, len(g.Dropped))
	for c := range g.Dropped {
		cats = append(cats, c)
	}
	slices.Sort(cats)
	dropped := make([]map[string]any, len(cats))
	for i, c := range cats {
		dropped[i] = map[string]any{"category": c, "links": g.Dropped[c]}
	}

	return map[string]any{
		"width":       g.Width,
		"height":      g.Height,
		"scaleFactor": g.ScaleFactor,
		"selected":    g.Selected,
		"skipped":     g.Skipped,
		"nodes":       nodes,
		"links":       links,
		"dropped":     dropped,
	}
}

func recordValue(r traffic.Record) map[string]any {
	return map[string]any{
		"source":   r.Source,
		"target":   r.Target,
		"category": string(r.Category),
		"packets":  float64(r.Packets),
		"port":     r.Port,
	}
}

func tableValue(res detail.Result) map[string]any {
	rows := make([]map[string]any, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = recordValue(r)
	}
	return map[string]any{
		"category":   string(res.Category),
		"page":       res.Page,
		"totalPages": res.TotalPages,
		"totalRows":  res.TotalRows,
		"rows":       rows,
	}
}
