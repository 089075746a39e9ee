package api

import (
	"time"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Captures  int       `json:"captures"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PcapInfo is a catalog entry without its summary.
type PcapInfo struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Filename      string `json:"filename"`
	Timestamp     string `json:"timestamp"`
	Hostname      string `json:"hostname"`
	Description   string `json:"description"`
	ProjectNumber string `json:"project_number"`
	TotalPackets  int64  `json:"totalPackets"`
	Conversations int    `json:"conversations"`
}

func newPcapInfo(e capture.Entry) PcapInfo {
	info := PcapInfo{
		ID:            e.ID,
		Label:         e.Label,
		Filename:      e.Filename,
		Timestamp:     e.Timestamp,
		Hostname:      e.Hostname,
		Description:   e.Description,
		ProjectNumber: e.ProjectNumber,
	}
	for _, n := range e.TotalPackets() {
		info.TotalPackets += n
	}
	if records, err := e.IPConversations(); err == nil {
		info.Conversations = len(records)
	}
	return info
}

// PcapListResponse lists the catalog.
type PcapListResponse struct {
	Pcaps []PcapInfo `json:"pcaps"`
	Count int        `json:"count"`
}

// HitResponse is the result of a click on the graph surface.
type HitResponse struct {
	Node     *visualization.NodeJSON `json:"node,omitempty"`
	Selected string                  `json:"selected,omitempty"`
}
