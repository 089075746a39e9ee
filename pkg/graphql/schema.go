// Package graphql exposes captures, graphs and detail tables through a
// graphql-go schema.
package graphql

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/detail"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// Backend serves the data behind the schema.
type Backend interface {
	Captures() []capture.Entry
	Graph(ctx context.Context, pcapID string, width, height float64, selected traffic.Category) (*visualization.Graph, error)
	Table(ctx context.Context, pcapID string, category traffic.Category, q detail.Query) (detail.Result, error)
}

var categoryEnum = func() *graphql.Enum {
	values := graphql.EnumValueConfigMap{}
	for _, c := range traffic.Categories {
		values[c.String()] = &graphql.EnumValueConfig{Value: string(c)}
	}
	return graphql.NewEnum(graphql.EnumConfig{Name: "Category", Values: values})
}()

var columnEnum = func() *graphql.Enum {
	values := graphql.EnumValueConfigMap{}
	for _, def := range detail.Columns {
		values[string(def.Column)] = &graphql.EnumValueConfig{Value: string(def.Column)}
	}
	return graphql.NewEnum(graphql.EnumConfig{Name: "Column", Values: values})
}()

var recordType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Record",
	Fields: graphql.Fields{
		"source":   &graphql.Field{Type: graphql.String},
		"target":   &graphql.Field{Type: graphql.String},
		"category": &graphql.Field{Type: graphql.String},
		"packets":  &graphql.Field{Type: graphql.Float},
		"port":     &graphql.Field{Type: graphql.Int},
	},
})

var pcapType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Pcap",
	Fields: graphql.Fields{
		"id":            &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"label":         &graphql.Field{Type: graphql.String},
		"filename":      &graphql.Field{Type: graphql.String},
		"timestamp":     &graphql.Field{Type: graphql.String},
		"hostname":      &graphql.Field{Type: graphql.String},
		"description":   &graphql.Field{Type: graphql.String},
		"projectNumber": &graphql.Field{Type: graphql.String},
		"totalPackets":  &graphql.Field{Type: graphql.NewList(graphql.Float)},
		"conversations": &graphql.Field{
			Type:        graphql.Int,
			Description: "Number of ip conversations, null when the capture has none",
		},
	},
})

var nodeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Node",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"kind":        &graphql.Field{Type: graphql.String},
		"x":           &graphql.Field{Type: graphql.Float},
		"y":           &graphql.Field{Type: graphql.Float},
		"color":       &graphql.Field{Type: graphql.String},
		"label":       &graphql.Field{Type: graphql.String},
		"category":    &graphql.Field{Type: graphql.String},
		"value":       &graphql.Field{Type: graphql.String},
		"packets":     &graphql.Field{Type: graphql.Float},
		"width":       &graphql.Field{Type: graphql.Float},
		"height":      &graphql.Field{Type: graphql.Float},
		"borderColor": &graphql.Field{Type: graphql.String},
		"evicted":     &graphql.Field{Type: graphql.Int},
	},
})

var linkType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Link",
	Fields: graphql.Fields{
		"source": &graphql.Field{Type: graphql.String},
		"target": &graphql.Field{Type: graphql.String},
		"kind":   &graphql.Field{Type: graphql.String},
		"color":  &graphql.Field{Type: graphql.String},
	},
})

var droppedType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Dropped",
	Fields: graphql.Fields{
		"category": &graphql.Field{Type: graphql.String},
		"links":    &graphql.Field{Type: graphql.Int},
	},
})

var graphType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Graph",
	Fields: graphql.Fields{
		"width":       &graphql.Field{Type: graphql.Float},
		"height":      &graphql.Field{Type: graphql.Float},
		"scaleFactor": &graphql.Field{Type: graphql.Float},
		"selected":    &graphql.Field{Type: graphql.String},
		"skipped":     &graphql.Field{Type: graphql.Int},
		"nodes": &graphql.Field{
			Type: graphql.NewList(nodeType),
			Args: graphql.FieldConfigArgument{
				"kind": &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: resolveNodes,
		},
		"links":   &graphql.Field{Type: graphql.NewList(linkType)},
		"dropped": &graphql.Field{Type: graphql.NewList(droppedType)},
	},
})

var tableType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TablePage",
	Fields: graphql.Fields{
		"category":   &graphql.Field{Type: graphql.String},
		"page":       &graphql.Field{Type: graphql.Int},
		"totalPages": &graphql.Field{Type: graphql.Int},
		"totalRows":  &graphql.Field{Type: graphql.Int},
		"rows":       &graphql.Field{Type: graphql.NewList(recordType)},
	},
})

// NewSchema builds the query schema over backend.
func NewSchema(backend Backend) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"pcaps": &graphql.Field{
				Type: graphql.NewList(pcapType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					entries := backend.Captures()
					out := make([]map[string]any, len(entries))
					for i, e := range entries {
						out[i] = pcapValue(e)
					}
					return out, nil
				},
			},
			"graph": &graphql.Field{
				Type: graphType,
				Args: graphql.FieldConfigArgument{
					"pcapId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"width":    &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"height":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"selected": &graphql.ArgumentConfig{Type: categoryEnum},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["pcapId"].(string)
					width, _ := p.Args["width"].(float64)
					height, _ := p.Args["height"].(float64)
					selected := categoryArg(p.Args, "selected")

					g, err := backend.Graph(p.Context, id, width, height, selected)
					if err != nil {
						return nil, err
					}
					return graphValue(g.Export(selected)), nil
				},
			},
			"table": &graphql.Field{
				Type: tableType,
				Args: graphql.FieldConfigArgument{
					"pcapId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"category": &graphql.ArgumentConfig{Type: graphql.NewNonNull(categoryEnum)},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"sort":     &graphql.ArgumentConfig{Type: columnEnum},
					"desc":     &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"filter":   &graphql.ArgumentConfig{Type: columnEnum},
					"text":     &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["pcapId"].(string)
					q := detail.Query{
						Sort:   columnArg(p.Args, "sort"),
						Filter: columnArg(p.Args, "filter"),
					}
					q.Page, _ = p.Args["page"].(int)
					q.Desc, _ = p.Args["desc"].(bool)
					q.Text, _ = p.Args["text"].(string)

					res, err := backend.Table(p.Context, id, categoryArg(p.Args, "category"), q)
					if err != nil {
						return nil, err
					}
					return tableValue(res), nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("build graphql schema: %w", err)
	}
	return schema, nil
}

func resolveNodes(p graphql.ResolveParams) (any, error) {
	g := p.Source.(map[string]any)
	nodes := g["nodes"].([]map[string]any)
	kind, _ := p.Args["kind"].(string)
	if kind == "" {
		return nodes, nil
	}
	out := make([]map[string]any, 0)
	for _, n := range nodes {
		if n["kind"] == kind {
			out = append(out, n)
		}
	}
	return out, nil
}

func categoryArg(args map[string]any, name string) traffic.Category {
	s, _ := args[name].(string)
	return traffic.Category(s)
}

func columnArg(args map[string]any, name string) detail.Column {
	s, _ := args[name].(string)
	return detail.Column(s)
}
