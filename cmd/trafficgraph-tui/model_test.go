package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/interaction"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

func entry(id, filename string, records []traffic.Record) capture.Entry {
	return capture.Entry{
		Pcap: capture.Pcap{
			ID:       id,
			Filename: filename,
			Summary:  []capture.SummaryEntry{{Type: capture.SummaryIPConversations, Conversations: records}},
		},
		Label: filename,
	}
}

func testEntries() []capture.Entry {
	var dns []traffic.Record
	for i := range 25 {
		dns = append(dns, traffic.Record{
			Source: "10.0.0.1", Target: fmt.Sprintf("192.0.2.%d", i), Category: traffic.DNS, Packets: int64(i + 1), Port: 53,
		})
	}
	return []capture.Entry{
		entry("a", "office.pcap", dns),
		entry("b", "lab.pcap", []traffic.Record{
			{Source: "10.0.0.2", Target: "10.0.0.30", Category: traffic.Internal, Packets: 7, Port: 445},
		}),
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func TestModel_Initial(t *testing.T) {
	m := newModel(testEntries(), interaction.WithDebounce(time.Millisecond))
	defer m.controller.Close()

	require.NotNil(t, m.graph)
	assert.Equal(t, 0, m.current)
	assert.Equal(t, traffic.None, m.controller.Selected())
	assert.Zero(t, m.page.TotalRows)

	view := m.View()
	assert.Contains(t, view, "office.pcap")
	assert.Contains(t, view, "lab.pcap")
	assert.Contains(t, view, "+15 more")
}

func TestModel_ToggleAndPage(t *testing.T) {
	m := newModel(testEntries(), interaction.WithDebounce(time.Millisecond))
	defer m.controller.Close()

	m = update(t, m, runes("3"))
	assert.Equal(t, traffic.DNS, m.controller.Selected())
	assert.Equal(t, 25, m.page.TotalRows)
	assert.Equal(t, 2, m.page.TotalPages)
	assert.Len(t, m.table.Rows(), 20)
	assert.Contains(t, m.View(), "dns: page 1/2")

	m = update(t, m, runes("n"))
	assert.Equal(t, 2, m.page.Page)
	assert.Len(t, m.table.Rows(), 5)

	m = update(t, m, runes("n"))
	assert.Equal(t, 2, m.page.Page, "paging stops at the last page")

	m = update(t, m, runes("p"))
	assert.Equal(t, 1, m.page.Page)

	m = update(t, m, runes("3"))
	assert.Equal(t, traffic.None, m.controller.Selected())
	assert.Zero(t, m.page.TotalRows)
}

func TestModel_Sort(t *testing.T) {
	m := newModel(testEntries(), interaction.WithDebounce(time.Millisecond))
	defer m.controller.Close()

	m = update(t, m, runes("3"))
	for range 3 {
		m = update(t, m, runes("s"))
	}
	require.Equal(t, "packets", string(m.query.Sort))
	assert.Equal(t, "1", m.table.Rows()[0][2])

	m = update(t, m, runes("r"))
	assert.Equal(t, "25", m.table.Rows()[0][2])
}

func TestModel_Tabs(t *testing.T) {
	m := newModel(testEntries(), interaction.WithDebounce(time.Millisecond))
	m = update(t, m, runes("3"))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	defer m.controller.Close()
	assert.Equal(t, 1, m.current)
	assert.Equal(t, traffic.None, m.controller.Selected(), "a new tab starts unselected")
	assert.Len(t, m.controller.Records(), 1)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 0, m.current)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 1, m.current, "tabs wrap around")
}

func TestModel_ResizeRelayout(t *testing.T) {
	m := newModel(testEntries(), interaction.WithDebounce(time.Millisecond))
	defer m.controller.Close()

	m = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 50})

	got := make(chan tea.Msg, 1)
	go func() { got <- waitForRelayout(m.relayouts)() }()

	select {
	case msg := <-got:
		m = update(t, m, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no relayout after resize")
	}
	assert.Equal(t, 1536.0, m.graph.Width)
	assert.Equal(t, 680.0, m.graph.Height)
}

func TestModel_StaleRelayoutIgnored(t *testing.T) {
	m := newModel(testEntries())
	defer m.controller.Close()

	before := m.graph
	m = update(t, m, relayoutMsg{gen: m.gen - 1, graph: nil})
	assert.Same(t, before, m.graph)
}

func TestModel_OlderRelayoutIgnoredAfterToggle(t *testing.T) {
	m := newModel(testEntries())
	defer m.controller.Close()

	queued := relayoutMsg{gen: m.gen, seq: m.seq, graph: m.graph}
	m = update(t, m, runes("3"))
	toggled := m.graph
	require.NotSame(t, queued.graph, toggled)

	m = update(t, m, queued)
	assert.Same(t, toggled, m.graph, "a graph built before the toggle is not shown")
}

func TestModel_NoCaptures(t *testing.T) {
	m := newModel(nil)
	assert.Nil(t, m.controller)
	assert.True(t, strings.Contains(m.View(), "no captures loaded"))

	m = update(t, m, runes("1"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, m.graph)
}
