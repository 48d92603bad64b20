// vv is a real-time TUI viewer for a serial physiological-sensor device.
//
// It reads pressure, breath and heart-rate channels from the device, keeps
// the most recent samples per channel in memory, and plots the channels you
// select. The plot's axes can be locked to typed bounds or copied back into
// them after panning and zooming.
//
// Usage:
//
//	vv                          # Pick a port from the Port view
//	vv --port /dev/ttyACM0      # Connect on startup
//	vv --config bench.toml      # Use a specific config file
//	vv --json --duration 10s    # Acquire for 10s, dump state as JSON and exit
//	vv --view filters           # Start in a specific view
//	vv --debug vv.log           # Write debug logs to a file
//	vv --version                # Print version and exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/sync/errgroup"

	"github.com/daviddao/vitals_viewer/internal/acquire"
	"github.com/daviddao/vitals_viewer/internal/config"
	"github.com/daviddao/vitals_viewer/internal/datasource"
	"github.com/daviddao/vitals_viewer/internal/logging"
	"github.com/daviddao/vitals_viewer/internal/plot"
	"github.com/daviddao/vitals_viewer/internal/reconcile"
	"github.com/daviddao/vitals_viewer/internal/sample"
	"github.com/daviddao/vitals_viewer/internal/snapshot"
	"github.com/daviddao/vitals_viewer/internal/state"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

// parseViewFlag maps a --view flag string to a viewID.
func parseViewFlag(s string) (viewID, error) {
	switch strings.ToLower(s) {
	case "graph", "g":
		return viewGraph, nil
	case "filters", "f":
		return viewFilters, nil
	case "axis", "a":
		return viewAxis, nil
	case "port", "p":
		return viewPort, nil
	default:
		return 0, fmt.Errorf("unknown view %q (valid: graph, filters, axis, port)", s)
	}
}

// jsonOutput is the structure for --json mode.
type jsonOutput struct {
	Port      string        `json:"port"`
	Connected bool          `json:"connected"`
	Channels  []jsonChannel `json:"channels"`
	Limits    jsonLimits    `json:"limits"`
	Stats     jsonStats     `json:"stats"`
}

type jsonChannel struct {
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	Visible bool      `json:"visible"`
	Values  []float64 `json:"values"`
}

type jsonLimits struct {
	XMin      float64 `json:"x_min"`
	XMax      float64 `json:"x_max"`
	YMin      float64 `json:"y_min"`
	YMax      float64 `json:"y_max"`
	Autoscale bool    `json:"autoscale"`
}

type jsonStats struct {
	Cycles   uint64 `json:"cycles"`
	Tuples   uint64 `json:"tuples"`
	Channels int    `json:"channels"`
	Backlog  int    `json:"backlog"`
	Lines    uint64 `json:"lines"`
	Dropped  uint64 `json:"dropped"`
	Sent     uint64 `json:"sent"`
}

// pipeline wires the shared state, the device and the two loops together.
type pipeline struct {
	cfg     *config.Config
	cells   *state.Cells
	filter  *state.Filter
	plot    *plot.Plot
	in      *sample.Queue[sample.Tuple]
	out     *sample.Queue[string]
	device  *datasource.Device
	acquire *acquire.Loop
	recon   *reconcile.Loop
}

func newPipeline(cfg *config.Config) *pipeline {
	cells := state.NewCells()
	state.WriteBounds(cells, cfg.Axis.Bounds())
	cells.SetBool(state.LockAxis, cfg.Axis.Lock)
	cells.SetBool(state.CopyAxis, cfg.Axis.Copy)
	for _, name := range cfg.Filters {
		cells.SetBool(name, false)
	}

	filter := state.NewFilter()
	pl := plot.New(cfg.Axis.Bounds())
	in := sample.NewQueue[sample.Tuple]()
	out := sample.NewQueue[string]()

	dev := datasource.NewDevice(in, out)
	dev.Baud = cfg.Serial.Baud
	dev.EOL = cfg.Serial.EOL

	acq := acquire.New(in, filter, pl)
	acq.StartDelay = cfg.Acquire.StartDelay
	acq.Cadence = cfg.Acquire.Cadence
	acq.Idle = cfg.Acquire.Idle
	acq.Window = cfg.Acquire.Window

	rec := reconcile.New(cells, filter, pl, cfg.Filters)
	rec.StartDelay = cfg.Reconcile.StartDelay
	rec.Cadence = cfg.Reconcile.Cadence

	return &pipeline{
		cfg:     cfg,
		cells:   cells,
		filter:  filter,
		plot:    pl,
		in:      in,
		out:     out,
		device:  dev,
		acquire: acq,
		recon:   rec,
	}
}

// start runs both loops until ctx is done. Wait on the returned group.
func (p *pipeline) start(ctx context.Context) *errgroup.Group {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.acquire.Run(gctx) })
	g.Go(func() error { return p.recon.Run(gctx) })
	return g
}

func (p *pipeline) snapshot() (*snapshot.DataSnapshot, error) {
	return snapshot.Build(snapshot.Sources{
		Plot:   p.plot,
		Loop:   p.acquire,
		Filter: p.filter,
		Device: p.device,
		Queue:  p.in,
	})
}

func main() {
	configPath := flag.String("config", "", "path to vv.toml (default: search /etc/vv, ~/.config/vv, .)")
	portFlag := flag.String("port", "", "serial port to connect on startup")
	baudFlag := flag.Int("baud", 0, "serial baud rate (default from config)")
	logFile := flag.String("debug", "", "write debug logs to file")
	jsonMode := flag.Bool("json", false, "acquire for --duration, dump state as JSON and exit (no TUI)")
	duration := flag.Duration("duration", 5*time.Second, "acquisition time in --json mode")
	viewFlag := flag.String("view", "", "start in specific view (graph|filters|axis|port)")
	refreshDur := flag.Duration("refresh", 0, "UI refresh interval (default from config)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("vv %s\n", Version)
		os.Exit(0)
	}

	cleanup, err := logging.Setup(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vv: logging: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vv: %v\n", err)
		os.Exit(1)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *baudFlag > 0 {
		cfg.Serial.Baud = *baudFlag
	}
	if *refreshDur > 0 {
		cfg.UI.Refresh = *refreshDur
	}

	pipe := newPipeline(cfg)

	// --json mode: acquire, build snapshot, print JSON, exit.
	if *jsonMode {
		if err := runJSON(pipe, *duration); err != nil {
			fmt.Fprintf(os.Stderr, "vv: %v\n", err)
			cleanup()
			os.Exit(1)
		}
		return
	}

	startView := viewGraph
	if *viewFlag != "" {
		v, err := parseViewFlag(*viewFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vv: %v\n", err)
			cleanup()
			os.Exit(1)
		}
		startView = v
	}

	if err := runTUI(pipe, startView); err != nil {
		fmt.Fprintf(os.Stderr, "vv: %v\n", err)
		cleanup()
		os.Exit(1)
	}
}

// runJSON connects, lets the loops run for d with every channel visible,
// and prints one snapshot.
func runJSON(pipe *pipeline, d time.Duration) error {
	if pipe.cfg.Serial.Port == "" {
		return fmt.Errorf("--json needs a port (--port or serial.port)")
	}
	if _, err := pipe.device.Connect(pipe.cfg.Serial.Port); err != nil {
		return err
	}
	defer pipe.device.Disconnect()

	for _, name := range pipe.cfg.Filters {
		pipe.cells.SetBool(name, true)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := pipe.start(ctx).Wait(); err != nil {
		return err
	}

	snap, err := pipe.snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(buildJSONOutput(snap, pipe.cfg.Filters)); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}

func runTUI(pipe *pipeline, startView viewID) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := pipe.start(ctx)

	m := newModel(pipe)
	m.activeView = startView
	if pipe.cfg.Serial.Port != "" {
		m.portName = pipe.cfg.Serial.Port
		m.status = connectStatus(pipe.device.Connect(pipe.cfg.Serial.Port))
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Feed serial hot-plug events into the TUI.
	if w, err := datasource.NewWatcher(pipe.cfg.Serial.DevDir); err != nil {
		fmt.Fprintf(os.Stderr, "vv: watch %s: %v (port list will not auto-refresh)\n", pipe.cfg.Serial.DevDir, err)
	} else {
		defer w.Close()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-w.Changes():
					if !ok {
						return
					}
					p.Send(portsChangedMsg{})
				}
			}
		}()
	}

	// Redraw the plot on the UI cadence.
	go func() {
		ticker := time.NewTicker(pipe.cfg.UI.Refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Send(refreshMsg{})
			}
		}
	}()

	_, runErr := p.Run()

	cancel()
	err := g.Wait()
	pipe.device.Disconnect()
	if runErr != nil {
		return runErr
	}
	return err
}

// buildJSONOutput converts a snapshot into the JSON output structure.
func buildJSONOutput(snap *snapshot.DataSnapshot, names []string) jsonOutput {
	channels := make([]jsonChannel, 0, len(snap.Channels))
	for _, i := range snap.Channels {
		values := snap.Series[i]
		if values == nil {
			values = []float64{}
		}
		channels = append(channels, jsonChannel{
			Index:   i,
			Name:    plot.ChannelName(names, i),
			Visible: snap.Filter[i],
			Values:  values,
		})
	}

	return jsonOutput{
		Port:      snap.Port,
		Connected: snap.Connected,
		Channels:  channels,
		Limits: jsonLimits{
			XMin:      snap.Limits.XMin,
			XMax:      snap.Limits.XMax,
			YMin:      snap.Limits.YMin,
			YMax:      snap.Limits.YMax,
			Autoscale: snap.Autoscale,
		},
		Stats: jsonStats{
			Cycles:   snap.Acquire.Cycles,
			Tuples:   snap.Acquire.Tuples,
			Channels: snap.Acquire.Channels,
			Backlog:  snap.Backlog,
			Lines:    snap.Lines,
			Dropped:  snap.Dropped,
			Sent:     snap.Sent,
		},
	}
}

// --- Connection status text ---

func connectStatus(ok bool, err error) string {
	switch {
	case ok:
		return "Connected"
	case err == nil:
		return "Already connected"
	default:
		return "Not connected"
	}
}

func disconnectStatus(ok bool) string {
	if ok {
		return "Disconnected"
	}
	return "Not connected"
}

func reconnectStatus(disconnected, connected bool, err error) string {
	switch {
	case connected && disconnected:
		return "Reconnected"
	case connected, disconnected && err == nil:
		return "Connected"
	default:
		return "Not connected"
	}
}

// --- Messages ---

type refreshMsg struct{}

type portsChangedMsg struct{}

type snapshotReadyMsg struct {
	snap *snapshot.DataSnapshot
	err  error
}

type portsListedMsg struct {
	ports []string
	err   error
}

type connectionMsg struct {
	status string
	err    error
}

// --- Key bindings ---

type keyMap struct {
	Quit     key.Binding
	Tab      key.Binding
	Refresh  key.Binding
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Help     key.Binding
	Toggle   key.Binding
	Esc      key.Binding
	Lock     key.Binding
	Copy     key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Autoscl  key.Binding
	Connect  key.Binding
	Discon   key.Binding
	Reconn   key.Binding
	Send     key.Binding
	AllOn    key.Binding
	AllOff   key.Binding
	Activate key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/left", "pan left")),
	Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/right", "pan right")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Esc:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Lock:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "lock axis")),
	Copy:     key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "copy axis")),
	ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
	Autoscl:  key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "autoscale")),
	Connect:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
	Discon:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "disconnect")),
	Reconn:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reconnect")),
	Send:     key.NewBinding(key.WithKeys("s", ":"), key.WithHelp("s", "send serial")),
	AllOn:    key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "show all")),
	AllOff:   key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "hide all")),
	Activate: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit/select")),
}

// viewKeys maps single keys to views for fast navigation.
var viewKeys = map[string]viewID{
	"g": viewGraph,
	"f": viewFilters,
	"a": viewAxis,
	"p": viewPort,
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Lock, k.Copy, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut, k.Autoscl, k.Lock, k.Copy},
		{k.Toggle, k.Activate, k.AllOn, k.AllOff, k.Esc},
		{k.Refresh, k.Connect, k.Discon, k.Reconn, k.Send},
		{k.Help, k.Quit},
	}
}

// contextHelp returns help text appropriate for the current view.
func contextHelp(v viewID) string {
	switch v {
	case viewGraph:
		return "h/j/k/l: pan | +/-: zoom | 0: autoscale | L/C: lock/copy | g/f/a/p: views | ?: help | q: quit"
	case viewFilters:
		return "j/k: select | space: toggle | A/N: all/none | g/f/a/p: views | ?: help | q: quit"
	case viewAxis:
		return "j/k: select | enter: edit/toggle | esc: cancel | g/f/a/p: views | ?: help | q: quit"
	case viewPort:
		return "j/k: select | r: refresh | c/x/R: connect/disconnect/reconnect | s: send | ?: help | q: quit"
	default:
		return "g/f/a/p: views | tab: next | ?: help | q: quit"
	}
}

// --- Views ---

type viewID int

const (
	viewGraph viewID = iota
	viewFilters
	viewAxis
	viewPort
	viewCount // sentinel
)

func (v viewID) String() string {
	switch v {
	case viewGraph:
		return "Graph"
	case viewFilters:
		return "Filters"
	case viewAxis:
		return "Axis"
	case viewPort:
		return "Port"
	}
	return "?"
}

// axisRows are the graph control panel entries, in display order.
var axisRows = []string{state.LockAxis, state.CopyAxis, state.XMin, state.XMax, state.YMin, state.YMax}

func isToggleRow(name string) bool {
	return name == state.LockAxis || name == state.CopyAxis
}

// --- Model ---

type uiModel struct {
	pipe *pipeline
	snap *snapshot.DataSnapshot

	activeView   viewID
	width        int
	height       int
	filterCursor int
	axisCursor   int
	portCursor   int

	ports    []string
	portsErr error
	portName string // selected or last connected port
	status   string // last connection result

	editing   bool // editing an axis field
	sending   bool // typing a serial command
	axisInput textinput.Model
	sendInput textinput.Model
	lastSent  string

	help     help.Model
	showHelp bool

	lastRefresh time.Time
}

func newModel(pipe *pipeline) uiModel {
	ai := textinput.New()
	ai.Placeholder = "number"
	ai.CharLimit = 32
	ai.Width = 16

	si := textinput.New()
	si.Placeholder = "command for the device"
	si.CharLimit = 256
	si.Width = 48

	snap, err := pipe.snapshot()
	if err != nil {
		snap = &snapshot.DataSnapshot{Series: map[int][]float64{}, Filter: map[int]bool{}, BuiltAt: time.Now()}
	}

	return uiModel{
		pipe:        pipe,
		snap:        snap,
		help:        help.New(),
		axisInput:   ai,
		sendInput:   si,
		lastRefresh: time.Now(),
	}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(
		listPorts(),
		m.refreshSnapshot(),
	)
}

func listPorts() tea.Cmd {
	return func() tea.Msg {
		ports, err := datasource.Discover()
		return portsListedMsg{ports: ports, err: err}
	}
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.updateAxisEdit(msg)
		}
		if m.sending {
			return m.updateSend(msg)
		}

		// Check single-key view shortcuts first.
		if v, ok := viewKeys[msg.String()]; ok {
			m.activeView = v
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Tab):
			m.activeView = (m.activeView + 1) % viewCount
			return m, nil

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Lock):
			m.pipe.cells.Toggle(state.LockAxis)
			return m, nil

		case key.Matches(msg, keys.Copy):
			m.pipe.cells.Toggle(state.CopyAxis)
			return m, nil
		}

		switch m.activeView {
		case viewGraph:
			return m.updateGraphKey(msg)
		case viewFilters:
			return m.updateFiltersKey(msg)
		case viewAxis:
			return m.updateAxisKey(msg)
		case viewPort:
			return m.updatePortKey(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case refreshMsg:
		return m, m.refreshSnapshot()

	case snapshotReadyMsg:
		if msg.err == nil && msg.snap != nil {
			m.snap = msg.snap
			m.lastRefresh = time.Now()
		}

	case portsChangedMsg:
		return m, listPorts()

	case portsListedMsg:
		m.ports, m.portsErr = msg.ports, msg.err
		// Clamp the cursor to avoid index-out-of-bounds after a port vanishes.
		if m.portCursor >= len(m.ports) {
			m.portCursor = max(0, len(m.ports)-1)
		}

	case connectionMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status += ": " + msg.err.Error()
		}
		return m, m.refreshSnapshot()
	}

	return m, nil
}

func (m uiModel) refreshSnapshot() tea.Cmd {
	pipe := m.pipe
	return func() tea.Msg {
		snap, err := pipe.snapshot()
		return snapshotReadyMsg{snap: snap, err: err}
	}
}

func (m uiModel) updateGraphKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pl := m.pipe.plot
	switch {
	case key.Matches(msg, keys.Left):
		pl.Pan(-0.1, 0)
	case key.Matches(msg, keys.Right):
		pl.Pan(0.1, 0)
	case key.Matches(msg, keys.Up):
		pl.Pan(0, 0.1)
	case key.Matches(msg, keys.Down):
		pl.Pan(0, -0.1)
	case key.Matches(msg, keys.ZoomIn):
		pl.Zoom(0.8)
	case key.Matches(msg, keys.ZoomOut):
		pl.Zoom(1.25)
	case key.Matches(msg, keys.Autoscl):
		pl.Autoscale()
	case key.Matches(msg, keys.Refresh):
	default:
		return m, nil
	}
	return m, m.refreshSnapshot()
}

func (m uiModel) updateFiltersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	names := m.pipe.cfg.Filters
	switch {
	case key.Matches(msg, keys.Up):
		if m.filterCursor > 0 {
			m.filterCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.filterCursor < len(names)-1 {
			m.filterCursor++
		}
	case key.Matches(msg, keys.Toggle), key.Matches(msg, keys.Activate):
		if m.filterCursor >= 0 && m.filterCursor < len(names) {
			m.pipe.cells.Toggle(names[m.filterCursor])
		}
	case key.Matches(msg, keys.AllOn):
		for _, n := range names {
			m.pipe.cells.SetBool(n, true)
		}
	case key.Matches(msg, keys.AllOff):
		for _, n := range names {
			m.pipe.cells.SetBool(n, false)
		}
	case key.Matches(msg, keys.Refresh):
		return m, m.refreshSnapshot()
	}
	return m, nil
}

func (m uiModel) updateAxisKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.axisCursor > 0 {
			m.axisCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.axisCursor < len(axisRows)-1 {
			m.axisCursor++
		}
	case key.Matches(msg, keys.Toggle), key.Matches(msg, keys.Activate):
		row := axisRows[m.axisCursor]
		if isToggleRow(row) {
			m.pipe.cells.Toggle(row)
			return m, nil
		}
		m.editing = true
		m.axisInput.SetValue(m.pipe.cells.Get(row))
		m.axisInput.CursorEnd()
		cmd := m.axisInput.Focus()
		return m, cmd
	}
	return m, nil
}

// updateAxisEdit handles keys while an axis field is being typed. Any text is
// accepted; the reconciliation loop decides whether it parses.
func (m uiModel) updateAxisEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.pipe.cells.Set(axisRows[m.axisCursor], strings.TrimSpace(m.axisInput.Value()))
		m.editing = false
		m.axisInput.Blur()
		return m, nil
	case tea.KeyEsc:
		m.editing = false
		m.axisInput.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.axisInput, cmd = m.axisInput.Update(msg)
	return m, cmd
}

func (m uiModel) updatePortKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	dev := m.pipe.device
	switch {
	case key.Matches(msg, keys.Up):
		if m.portCursor > 0 {
			m.portCursor--
		}
		m.portName = m.selectedPort()
	case key.Matches(msg, keys.Down):
		if m.portCursor < len(m.ports)-1 {
			m.portCursor++
		}
		m.portName = m.selectedPort()
	case key.Matches(msg, keys.Refresh):
		return m, listPorts()
	case key.Matches(msg, keys.Connect), key.Matches(msg, keys.Activate):
		name := m.selectedPort()
		if name == "" {
			name = m.portName
		}
		m.portName = name
		return m, func() tea.Msg {
			ok, err := dev.Connect(name)
			return connectionMsg{status: connectStatus(ok, err), err: err}
		}
	case key.Matches(msg, keys.Discon):
		return m, func() tea.Msg {
			return connectionMsg{status: disconnectStatus(dev.Disconnect())}
		}
	case key.Matches(msg, keys.Reconn):
		return m, func() tea.Msg {
			disc, conn, err := dev.Reconnect()
			return connectionMsg{status: reconnectStatus(disc, conn, err), err: err}
		}
	case key.Matches(msg, keys.Send):
		m.sending = true
		m.sendInput.SetValue("")
		cmd := m.sendInput.Focus()
		return m, cmd
	}
	return m, nil
}

// updateSend handles keys while a serial command is being typed.
func (m uiModel) updateSend(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		cmd := m.sendInput.Value()
		m.pipe.device.Send(cmd)
		m.lastSent = cmd
		m.sendInput.SetValue("")
		m.sending = false
		m.sendInput.Blur()
		return m, nil
	case tea.KeyEsc:
		m.sending = false
		m.sendInput.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.sendInput, cmd = m.sendInput.Update(msg)
	return m, cmd
}

func (m uiModel) selectedPort() string {
	if m.portCursor >= 0 && m.portCursor < len(m.ports) {
		return m.ports[m.portCursor]
	}
	return ""
}

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6C7086")).
				Background(lipgloss.Color("#313244")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	onStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#A6E3A1")).
		Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E"))
)

// channelStyle colours a channel the way the chart draws it.
func channelStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprint(int(plot.ChannelColor(i)))))
}

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	// Title bar.
	b.WriteString(m.renderTitleBar())
	b.WriteRune('\n')

	// Tab bar.
	b.WriteString(m.renderTabBar())
	b.WriteRune('\n')
	b.WriteRune('\n')

	// Content area.
	contentHeight := m.height - 5 // title + tabs + status + padding
	if m.showHelp {
		contentHeight -= 4
	}

	var content string

	// Split-pane: Graph + Filters side by side on wide terminals.
	if m.activeView == viewGraph && m.width >= 120 {
		rightWidth := 36
		leftWidth := m.width - rightWidth - 3 // 3 for separator
		left := m.renderGraph(leftWidth, contentHeight)
		right := m.renderFilters()
		content = renderSplitPane(left, right, leftWidth, rightWidth, contentHeight)
	} else {
		switch m.activeView {
		case viewGraph:
			content = m.renderGraph(m.width, contentHeight)
		case viewFilters:
			content = m.renderFilters()
		case viewAxis:
			content = m.renderAxis()
		case viewPort:
			content = m.renderPort()
		}

		lines := strings.Split(content, "\n")
		if len(lines) > contentHeight {
			lines = lines[:max(0, contentHeight)]
		}
		content = strings.Join(lines, "\n")
	}

	// Truncate each line to terminal width so content doesn't wrap
	// on resize. Uses ANSI-aware width measurement.
	content = truncateLines(content, m.width)

	b.WriteString(content)

	// Pad to fill screen.
	rendered := strings.Count(b.String(), "\n")
	for rendered < m.height-2 {
		b.WriteRune('\n')
		rendered++
	}

	// Help / status bar.
	if m.showHelp {
		b.WriteString(m.help.View(keys))
	} else {
		b.WriteString(m.renderStatusBar())
	}

	return b.String()
}

func (m uiModel) renderTitleBar() string {
	title := titleStyle.Render("vitals viewer")
	port := "disconnected"
	if m.snap.Connected {
		port = m.snap.Port
	}
	stats := dimStyle.Render(fmt.Sprintf(
		"%d channels | %d samples | %s",
		m.snap.Acquire.Channels,
		m.snap.Acquire.Tuples,
		port,
	))
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(stats)-2))
	return title + gap + stats
}

func (m uiModel) renderTabBar() string {
	var tabs []string
	for i := viewID(0); i < viewCount; i++ {
		if i == m.activeView {
			tabs = append(tabs, tabActiveStyle.Render(i.String()))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(i.String()))
		}
	}
	return strings.Join(tabs, " ")
}

func (m uiModel) renderStatusBar() string {
	ago := time.Since(m.lastRefresh).Truncate(100 * time.Millisecond)
	left := fmt.Sprintf(" %s", contextHelp(m.activeView))
	right := fmt.Sprintf("%s | refreshed %s ago ", m.axisMode(), ago)
	gap := strings.Repeat(" ", max(0, m.width-len(left)-len(right)))
	return statusBarStyle.Render(left + gap + right)
}

// axisMode summarises who owns the view limits right now.
func (m uiModel) axisMode() string {
	lock := m.pipe.cells.Bool(state.LockAxis)
	cp := m.pipe.cells.Bool(state.CopyAxis)
	switch {
	case lock && cp:
		return "lock+copy"
	case lock:
		return "locked"
	case cp:
		return "copying"
	case m.snap.Autoscale:
		return "auto"
	default:
		return "free"
	}
}

// --- Graph view ---

func (m uiModel) renderGraph(width, height int) string {
	var b strings.Builder
	l := m.snap.Limits
	b.WriteString(headerStyle.Render("Graph"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  x %.2f..%.2f  y %.2f..%.2f  [%s]",
		l.XMin, l.XMax, l.YMin, l.YMax, m.axisMode())))
	b.WriteRune('\n')

	if len(m.snap.Channels) == 0 {
		b.WriteString(dimStyle.Render("  (no visible channels - choose some in the Filters view)"))
		b.WriteRune('\n')
		return b.String()
	}

	chart := plot.Draw(m.snap.Series, m.snap.Limits, width-1, max(4, height-3), m.pipe.cfg.Filters)
	b.WriteString(chart)
	b.WriteRune('\n')

	// Legend with the newest value per channel.
	var legend []string
	for _, i := range m.snap.Channels {
		v, _ := m.snap.Latest(i)
		name := plot.ChannelName(m.pipe.cfg.Filters, i)
		legend = append(legend, channelStyle(i).Render("● "+name)+dimStyle.Render(fmt.Sprintf(" %.2f", v)))
	}
	b.WriteString(strings.Join(legend, "  "))
	b.WriteRune('\n')
	return b.String()
}

// --- Filters view ---

func (m uiModel) renderFilters() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Graph line filters"))
	b.WriteRune('\n')

	for i, name := range m.pipe.cfg.Filters {
		on := m.pipe.cells.Bool(name)
		box := offStyle.Render("[ ]")
		if on {
			box = onStyle.Render("[x]")
		}
		cursor := "  "
		label := name
		if i == m.filterCursor {
			cursor = "> "
			label = selectedStyle.Render(name)
		}
		value := ""
		if v, ok := m.snap.Latest(i); ok {
			value = channelStyle(i).Render(fmt.Sprintf(" %.2f", v))
		}
		b.WriteString(fmt.Sprintf("%s%s %2d %s%s\n", cursor, box, i, label, value))
	}

	// Channels the device sends beyond the named list can never be shown.
	if extra := m.snap.Acquire.Channels - len(m.pipe.cfg.Filters); extra > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  (%d unnamed channel(s) not filterable)", extra)))
		b.WriteRune('\n')
	}
	return b.String()
}

// --- Axis view ---

func (m uiModel) renderAxis() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Configurator"))
	b.WriteRune('\n')

	for i, row := range axisRows {
		cursor := "  "
		if i == m.axisCursor {
			cursor = "> "
		}
		if isToggleRow(row) {
			box := offStyle.Render("[ ]")
			if m.pipe.cells.Bool(row) {
				box = onStyle.Render("[x]")
			}
			b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, box, row))
			if row == state.CopyAxis {
				b.WriteRune('\n')
			}
			continue
		}

		value := m.pipe.cells.Get(row)
		field := value
		if m.editing && i == m.axisCursor {
			field = m.axisInput.View()
		} else if v, err := m.pipe.cells.Cell(row).Float(); err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			field = offStyle.Render(value + "  (not a number)")
		}
		b.WriteString(fmt.Sprintf("%s%-6s %s\n", cursor, row+":", field))
	}

	b.WriteRune('\n')
	l := m.snap.Limits
	b.WriteString(dimStyle.Render(fmt.Sprintf("  view: x %.2f..%.2f  y %.2f..%.2f",
		l.XMin, l.XMax, l.YMin, l.YMax)))
	b.WriteRune('\n')
	return b.String()
}

// --- Port view ---

func (m uiModel) renderPort() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Selectable ports"))
	b.WriteRune('\n')

	switch {
	case m.portsErr != nil:
		b.WriteString(offStyle.Render("  " + m.portsErr.Error()))
		b.WriteRune('\n')
	case len(m.ports) == 0:
		b.WriteString(dimStyle.Render("  None available"))
		b.WriteRune('\n')
	default:
		for i, p := range m.ports {
			cursor := "  "
			line := p
			if i == m.portCursor {
				cursor = "> "
				line = selectedStyle.Render(p)
			}
			if m.snap.Connected && p == m.snap.Port {
				line += onStyle.Render("  (connected)")
			}
			b.WriteString(cursor + line + "\n")
		}
	}

	b.WriteRune('\n')
	if m.status != "" {
		b.WriteString("  " + m.status)
		b.WriteRune('\n')
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  lines %d | dropped %d | sent %d | backlog %d",
		m.snap.Lines, m.snap.Dropped, m.snap.Sent, m.snap.Backlog)))
	b.WriteRune('\n')
	b.WriteRune('\n')

	b.WriteString(headerStyle.Render("Send serial"))
	b.WriteRune('\n')
	if m.sending {
		b.WriteString("  " + m.sendInput.View())
	} else if m.lastSent != "" {
		b.WriteString(dimStyle.Render("  last: " + truncate(m.lastSent, 40)))
	} else {
		b.WriteString(dimStyle.Render("  press s to type a command"))
	}
	b.WriteRune('\n')
	return b.String()
}

// --- Split-pane rendering ---

// renderSplitPane renders two content panes side by side with a vertical separator.
func renderSplitPane(left, right string, leftWidth, rightWidth, maxHeight int) string {
	leftLines := strings.Split(left, "\n")
	rightLines := strings.Split(right, "\n")

	// Pad to equal height.
	maxLines := max(len(leftLines), len(rightLines))
	if maxLines > maxHeight {
		maxLines = maxHeight
	}
	for len(leftLines) < maxLines {
		leftLines = append(leftLines, "")
	}
	for len(rightLines) < maxLines {
		rightLines = append(rightLines, "")
	}

	sep := dimStyle.Render("│")
	var b strings.Builder
	for i := 0; i < maxLines; i++ {
		l := padOrTruncate(leftLines[i], leftWidth)
		r := ansi.Truncate(rightLines[i], rightWidth, "")
		b.WriteString(l)
		b.WriteString(" ")
		b.WriteString(sep)
		b.WriteString(" ")
		b.WriteString(r)
		b.WriteRune('\n')
	}
	return b.String()
}

// padOrTruncate pads or truncates a styled line to the target visible width.
func padOrTruncate(styled string, width int) string {
	visWidth := lipgloss.Width(styled)
	if visWidth > width {
		return ansi.Truncate(styled, width, "")
	}
	return styled + strings.Repeat(" ", width-visWidth)
}

// --- Helpers ---

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes. This prevents terminal line
// wrapping when the window is resized narrower.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "")
		}
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to n cells, never inside a character, and marks the cut.
func truncate(s string, n int) string {
	if ansi.StringWidth(s) <= n {
		return s
	}
	return ansi.Truncate(s, n, "") + "..."
}
