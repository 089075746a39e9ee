// Package capture models uploaded packet captures and turns pcap files into
// classified traffic records.
package capture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

// ErrNoConversations means a capture carries no ip_conversations summary.
// Callers show "no traffic data" instead of a graph.
var ErrNoConversations = errors.New("capture has no ip conversations")

// SummaryType tags a summary entry.
type SummaryType string

const (
	SummaryTotalPackets    SummaryType = "total_pkts"
	SummaryIPConversations SummaryType = "ip_conversations"
)

// SummaryEntry is one tagged element of a capture summary. Exactly one of
// TotalPackets and Conversations is meaningful, chosen by Type.
type SummaryEntry struct {
	Type          SummaryType
	TotalPackets  []int64
	Conversations []traffic.Record
}

type summaryWire struct {
	Type    SummaryType     `json:"type"`
	Content json.RawMessage `json:"content"`
}

func (e SummaryEntry) MarshalJSON() ([]byte, error) {
	var content any
	switch e.Type {
	case SummaryTotalPackets:
		content = nonNil(e.TotalPackets)
	case SummaryIPConversations:
		content = nonNil(e.Conversations)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(summaryWire{Type: e.Type, Content: raw})
}

func (e *SummaryEntry) UnmarshalJSON(data []byte) error {
	var wire summaryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*e = SummaryEntry{Type: wire.Type}
	switch wire.Type {
	case SummaryTotalPackets:
		return json.Unmarshal(wire.Content, &e.TotalPackets)
	case SummaryIPConversations:
		return json.Unmarshal(wire.Content, &e.Conversations)
	default:
		// Unknown entries are kept by type only.
		return nil
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Pcap is an uploaded capture and its precomputed summary.
type Pcap struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	Timestamp     string         `json:"timestamp"`
	Hostname      string         `json:"hostname"`
	Description   string         `json:"description"`
	ProjectNumber string         `json:"project_number"`
	Summary       []SummaryEntry `json:"summary"`
}

// IPConversations returns the records of the ip_conversations summary.
func (p *Pcap) IPConversations() ([]traffic.Record, error) {
	for _, e := range p.Summary {
		if e.Type == SummaryIPConversations {
			return e.Conversations, nil
		}
	}
	return nil, ErrNoConversations
}

// TotalPackets returns the total_pkts summary, or nil.
func (p *Pcap) TotalPackets() []int64 {
	for _, e := range p.Summary {
		if e.Type == SummaryTotalPackets {
			return e.TotalPackets
		}
	}
	return nil
}

// UniqueLabels returns one tab label per capture. A filename seen more than
// once keeps its plain name the first time and gets "(1)", "(2)", ... after.
func UniqueLabels(pcaps []Pcap) []string {
	counts := make(map[string]int, len(pcaps))
	for _, p := range pcaps {
		counts[p.Filename]++
	}

	seen := make(map[string]int, len(pcaps))
	labels := make([]string, len(pcaps))
	for i, p := range pcaps {
		labels[i] = p.Filename
		if counts[p.Filename] < 2 {
			continue
		}
		if n := seen[p.Filename]; n > 0 {
			labels[i] = fmt.Sprintf("%s(%d)", p.Filename, n)
		}
		seen[p.Filename]++
	}
	return labels
}
