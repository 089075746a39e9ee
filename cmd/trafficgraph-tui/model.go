package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/detail"
	"github.com/dd0wney/cluso-trafficgraph/pkg/interaction"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// Terminal cells are mapped to page pixels so that the layout sees a
// viewport of familiar size.
const (
	cellWidth  = 8
	cellHeight = 16
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	blockStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 1).
			MarginRight(1)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Select   key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Sort     key.Binding
	Reverse  key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next capture"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev capture"),
	),
	Select: key.NewBinding(
		key.WithKeys("1", "2", "3", "4"),
		key.WithHelp("1-4", "toggle category"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("n", "pgdown"),
		key.WithHelp("n", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("p", "pgup"),
		key.WithHelp("p", "prev page"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort column"),
	),
	Reverse: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reverse sort"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Select, k.NextPage, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Select},
		{k.NextPage, k.PrevPage, k.Sort, k.Reverse},
		{k.Quit},
	}
}

// relayoutMsg carries a graph rebuilt off the update loop, after a
// debounced resize. Gen identifies the controller that built it and seq
// orders the graphs of one controller.
type relayoutMsg struct {
	gen   int
	seq   uint64
	graph *visualization.Graph
}

type model struct {
	entries []capture.Entry
	current int
	opts    []interaction.Option

	controller *interaction.Controller
	gen        int
	relayouts  chan relayoutMsg
	graph      *visualization.Graph
	seq        uint64

	query detail.Query
	page  detail.Result
	table table.Model

	help    help.Model
	keys    keyMap
	width   int
	height  int
	message string
}

func newModel(entries []capture.Entry, opts ...interaction.Option) model {
	t := table.New(
		table.WithColumns(tableColumns(80)),
		table.WithFocused(true),
		table.WithHeight(detail.PageSize/2),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	m := model{
		entries:   entries,
		opts:      opts,
		relayouts: make(chan relayoutMsg, 1),
		table:     t,
		help:      help.New(),
		keys:      keys,
		width:     80,
		height:    24,
		query:     detail.Query{Page: 1},
	}
	m.open(0)
	return m
}

func tableColumns(width int) []table.Column {
	w := max((width-12)/len(detail.Columns), 8)
	cols := make([]table.Column, len(detail.Columns))
	for i, def := range detail.Columns {
		cols[i] = table.Column{Title: def.Header, Width: w}
	}
	return cols
}

// open starts a controller for capture i. The previous controller is
// closed, dropping any resize it was waiting on.
func (m *model) open(i int) {
	if m.controller != nil {
		m.controller.Close()
		m.controller = nil
	}
	m.graph = nil
	m.message = ""
	if len(m.entries) == 0 {
		m.message = "no captures loaded"
		return
	}

	m.current = (i%len(m.entries) + len(m.entries)) % len(m.entries)
	records, err := m.entries[m.current].IPConversations()
	if err != nil {
		m.message = "no traffic data"
		return
	}

	m.gen++
	c := interaction.NewController(records, viewportW(m.width), viewportH(m.height), m.opts...)
	gen, ch := m.gen, m.relayouts
	c.OnRelayout(func(r interaction.Relayout) {
		// Keep only the newest graph; the view never needs an older one.
		msg := relayoutMsg{gen: gen, seq: r.Seq, graph: r.Graph}
		for {
			select {
			case ch <- msg:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	})
	m.controller = c
	m.install(c.Current())
	m.query = detail.Query{Page: 1}
	m.refreshTable()
}

// install shows a graph read straight from the controller. A relayout
// message already queued for an older sequence is then ignored.
func (m *model) install(r interaction.Relayout) {
	m.graph, m.seq = r.Graph, r.Seq
}

func viewportW(cols int) float64 { return float64(cols * cellWidth) }
func viewportH(rows int) float64 { return float64(rows * cellHeight) }

// waitForRelayout delivers the next rebuilt graph as a message.
func waitForRelayout(ch <-chan relayoutMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func (m model) Init() tea.Cmd {
	return waitForRelayout(m.relayouts)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(tableColumns(msg.Width))
		if m.controller != nil {
			m.controller.Resize(viewportW(msg.Width), viewportH(msg.Height))
		}
		return m, nil

	case relayoutMsg:
		if msg.gen == m.gen && msg.seq > m.seq {
			m.graph, m.seq = msg.graph, msg.seq
		}
		return m, waitForRelayout(m.relayouts)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.controller != nil {
				m.controller.Close()
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.open(m.current + 1)
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			m.open(m.current - 1)
			return m, nil

		case key.Matches(msg, m.keys.Select):
			m.toggle(msg.String())
			return m, nil

		case key.Matches(msg, m.keys.NextPage):
			m.query.Page = min(m.page.Page+1, max(m.page.TotalPages, 1))
			m.refreshTable()
			return m, nil

		case key.Matches(msg, m.keys.PrevPage):
			m.query.Page = max(m.page.Page-1, 1)
			m.refreshTable()
			return m, nil

		case key.Matches(msg, m.keys.Sort):
			m.query.Sort = nextColumn(m.query.Sort)
			m.query.Page = 1
			m.refreshTable()
			return m, nil

		case key.Matches(msg, m.keys.Reverse):
			m.query.Desc = !m.query.Desc
			m.refreshTable()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// toggle clicks the more node of the category bound to digit.
func (m *model) toggle(digit string) {
	if m.controller == nil {
		return
	}
	n, err := strconv.Atoi(digit)
	if err != nil || n < 1 || n > len(traffic.Categories) {
		return
	}
	m.controller.Toggle(traffic.Categories[n-1])
	m.install(m.controller.Current())
	m.query.Page = 1
	m.refreshTable()
}

func nextColumn(c detail.Column) detail.Column {
	for i, def := range detail.Columns {
		if def.Column == c {
			return detail.Columns[(i+1)%len(detail.Columns)].Column
		}
	}
	return detail.Columns[0].Column
}

// refreshTable reruns the detail query for the selected category.
func (m *model) refreshTable() {
	m.page = detail.Result{}
	m.table.SetRows(nil)
	if m.controller == nil || !m.controller.Selected().Valid() {
		return
	}

	res, err := detail.New(m.controller.Records(), m.controller.Selected()).Run(m.query)
	if err != nil {
		m.message = err.Error()
		return
	}
	m.page = res
	rows := make([]table.Row, len(res.Rows))
	for i, r := range res.Rows {
		row := make(table.Row, len(detail.Columns))
		for j, def := range detail.Columns {
			row[j] = detail.Cell(r, def.Column)
		}
		rows[i] = row
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Traffic Graph"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	if m.message != "" {
		b.WriteString(contentStyle.Render(errorStyle.Render(m.message)))
		b.WriteString("\n")
	}
	if m.graph != nil {
		b.WriteString(contentStyle.Render(m.renderGraph()))
		b.WriteString("\n")
	}
	if m.page.TotalRows > 0 {
		b.WriteString(contentStyle.Render(m.renderTable()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m model) renderTabs() string {
	tabs := make([]string, len(m.entries))
	for i, e := range m.entries {
		if i == m.current {
			tabs[i] = activeTabStyle.Render(e.Label)
		} else {
			tabs[i] = inactiveTabStyle.Render(e.Label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderGraph shows the layout as text: the sources in their colors, then
// one box per category block in its border color.
func (m model) renderGraph() string {
	g := m.graph
	selected := traffic.None
	if m.controller != nil {
		selected = m.controller.Selected()
	}

	sources := make([]string, len(g.Sources))
	for i, s := range g.Sources {
		sources[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("● " + s.IP)
	}

	blocks := make([]string, len(g.Blocks))
	for i, block := range g.Blocks {
		var lines []string
		header := fmt.Sprintf("%d %s", i+1, block.Category)
		if block.Category == selected {
			header += " ▼"
		}
		lines = append(lines, lipgloss.NewStyle().Bold(true).Render(header))
		for _, t := range block.Targets {
			lines = append(lines, fmt.Sprintf("%s (%d)", t.Label, t.Packets))
		}
		if block.Evicted > 0 {
			lines = append(lines, fmt.Sprintf("+%d more", block.Evicted))
		}
		if n := g.Dropped[block.Category]; n > 0 {
			lines = append(lines, fmt.Sprintf("%d links hidden", n))
		}
		blocks[i] = blockStyle.BorderForeground(lipgloss.Color(block.BorderColor)).
			Render(strings.Join(lines, "\n"))
	}

	summary := fmt.Sprintf("%.0fx%.0f  %d links", g.Width, g.Height, len(g.Links))
	if g.Skipped > 0 {
		summary += fmt.Sprintf("  %d skipped", g.Skipped)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		summary,
		strings.Join(sources, "  "),
		lipgloss.JoinHorizontal(lipgloss.Top, blocks...))
}

func (m model) renderTable() string {
	order := "asc"
	if m.query.Desc {
		order = "desc"
	}
	sort := string(m.query.Sort)
	if sort == "" {
		sort = "none"
	}
	footer := fmt.Sprintf("%s: page %d/%d, %d rows, sort %s %s",
		m.page.Category, m.page.Page, m.page.TotalPages, m.page.TotalRows, sort, order)
	return lipgloss.JoinVertical(lipgloss.Left, m.table.View(), footer)
}
