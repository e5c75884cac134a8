package main

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/pumpbot/pkg/config"
	"github.com/gwillem/pumpbot/pkg/sequence"
)

const (
	headerHeight = 3 // title + status line + blank
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Axis colors
var axisColors = map[string]string{
	"x": "46", // green
	"y": "51", // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// logWriter turns log output into lines for the dashboard.
type logWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
	ch  chan string
}

func newLogWriter() *logWriter {
	return &logWriter{ch: make(chan string, 32)}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), strings.TrimRight(line, "\n"))
		select {
		case w.ch <- msg:
		default:
			// Drop if channel full
		}
	}
	return len(p), nil
}

type runModel struct {
	orch     *sequence.Orchestrator
	cfg      config.Config
	logs     *logWriter
	stop     func()
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	lines    []string // last N log messages
	power    byte
	outcome  *sequence.Outcome
	stopping bool
	finished bool
}

// Messages from the orchestrator
type eventMsg sequence.Event
type eventsClosedMsg struct{}
type logMsg string

func waitForEvent(orch *sequence.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-orch.Events()
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

func waitForLog(w *logWriter) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-w.ch)
	}
}

// plotRange returns a symmetric Y range covering every waypoint of the plan.
func plotRange(plan sequence.Plan) float64 {
	extent := 1.0
	for _, step := range plan {
		for _, wp := range step.Waypoints {
			extent = math.Max(extent, math.Max(math.Abs(wp.X), math.Abs(wp.Y)))
		}
	}
	return math.Ceil(extent * 1.1)
}

func initialRunModel(orch *sequence.Orchestrator, cfg config.Config, plan sequence.Plan, logs *logWriter, stop func()) runModel {
	extent := plotRange(plan)
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-extent, extent),
	)
	for name, color := range axisColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return runModel{
		orch:  orch,
		cfg:   cfg,
		logs:  logs,
		stop:  stop,
		chart: &chart,
	}
}

func (m *runModel) addLog(msg string) {
	m.lines = append(m.lines, msg)
	if len(m.lines) > maxLogs {
		m.lines = m.lines[len(m.lines)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.orch),
		waitForLog(m.logs),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.finished {
				return m, tea.Quit
			}
			if !m.stopping {
				m.stopping = true
				m.addLog("stopping, waiting for shutdown...")
				m.stop()
			}
		}
		return m, nil

	case eventMsg:
		e := sequence.Event(msg)
		switch e.Kind {
		case sequence.EventWaypoint:
			m.power = e.Power
			m.chart.PushDataSet("x", e.Target.X)
			m.chart.PushDataSet("y", e.Target.Y)
			m.chart.DrawAll()
		case sequence.EventPatternEnd:
			m.outcome = e.Outcome
		}
		return m, waitForEvent(m.orch)

	case eventsClosedMsg:
		m.finished = true
		return m, tea.Quit

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.logs)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.finished {
		return "Run finished.\n"
	}

	var sb strings.Builder
	snap := m.orch.Snapshot()

	// Header
	sb.WriteString(titleStyle.Render("pumpbot"))
	sb.WriteString(fmt.Sprintf(" - run %s, speed %d", shortID(snap.RunID), m.cfg.Speed))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s  cycle %d/%d  %s[%d] %v  pump %d",
		snap.State, snap.Cycle, snap.Cycles, snap.Pattern, snap.Waypoint, snap.Target, m.power))
	if m.outcome != nil {
		style := statusStyle
		if m.outcome.Status != sequence.Completed {
			style = warnStyle
		}
		sb.WriteString("  " + style.Render(m.outcome.String()))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4)

	var logLines string
	if len(m.lines) == 0 {
		logLines = statusStyle.Render("Press 'q' to stop")
	} else {
		logLines = strings.Join(m.lines, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range []string{"x", "y"} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" target "+name)
	}
	return strings.Join(items, "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
