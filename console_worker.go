package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/ryansname/sbox-sim/canbus"
	"github.com/ryansname/sbox-sim/sbox"
)

// Fields of StatusData that can be watched by name
var watchFields = []string{"voltage", "current", "output", "setup", "pos", "neg", "pch", "rate"}

// WatchSpec is either a named model field or the inter-arrival period of a received ID
type WatchSpec struct {
	Field      string // one of watchFields, empty for an RX ID
	ID         uint32
	Percentile int // 1, 50 or 99, RX IDs only
}

// String returns a unique key for this watch spec
func (w WatchSpec) String() string {
	if w.Field != "" {
		return w.Field
	}
	if w.Percentile == 50 {
		return fmt.Sprintf("%#03x", w.ID)
	}
	return fmt.Sprintf("%#03x -p %d", w.ID, w.Percentile)
}

// ShortName returns a short column header for this watch
func (w WatchSpec) ShortName() string {
	if w.Field != "" {
		return w.Field
	}
	return fmt.Sprintf("%#03x p%d", w.ID, w.Percentile)
}

// GetValue extracts the watched value from StatusData
func (w WatchSpec) GetValue(data StatusData) string {
	s := data.SBox
	switch w.Field {
	case "voltage":
		return formatValue(s.Voltage)
	case "current":
		return formatValue(s.Current)
	case "output":
		return formatValue(s.OutputVoltage)
	case "setup":
		return yesNo(s.Setup)
	case "pos":
		return onOffString(s.Contactors.Positive)
	case "neg":
		return onOffString(s.Contactors.Negative)
	case "pch":
		return onOffString(s.Contactors.Precharge)
	case "rate":
		return strconv.Itoa(data.Rate)
	}

	stats, ok := data.RxID(w.ID)
	if !ok || stats.Count < 2 {
		return "-"
	}
	var d time.Duration
	switch w.Percentile {
	case 1:
		d = stats.P1
	case 99:
		d = stats.P99
	default:
		d = stats.P50
	}
	return formatPeriod(d)
}

// formatValue formats a float with smart precision
func formatValue(v float64) string {
	if v >= 100 || v <= -100 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func formatPeriod(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func onOffString(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// parseID parses an arbitration ID the way candump prints them, hex with an
// optional 0x prefix
func parseID(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	id, err := strconv.ParseUint(s, 16, 32)
	if err != nil || id > canbus.MaxExtID {
		return 0, fmt.Errorf("invalid CAN ID %q", s)
	}
	return uint32(id), nil
}

// parseWatchSpec parses watch command arguments into a WatchSpec
func parseWatchSpec(args []string) (*WatchSpec, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: watch <%s|id> [-p <1|50|99>]", strings.Join(watchFields, "|"))
	}

	spec := &WatchSpec{}
	if slices.Contains(watchFields, args[0]) {
		spec.Field = args[0]
	} else {
		id, err := parseID(args[0])
		if err != nil {
			return nil, fmt.Errorf("unknown field or ID: %s", args[0])
		}
		spec.ID = id
		spec.Percentile = 50
	}

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-p":
			if spec.Field != "" {
				return nil, fmt.Errorf("-p only applies to received IDs")
			}
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-p requires a value (1, 50, or 99)")
			}
			i++
			p, err := strconv.Atoi(args[i])
			if err != nil || (p != 1 && p != 50 && p != 99) {
				return nil, fmt.Errorf("-p must be 1, 50, or 99")
			}
			spec.Percentile = p
		default:
			return nil, fmt.Errorf("unknown option: %s", args[i])
		}
	}

	return spec, nil
}

// ANSI color codes for highlighting changes
const (
	ansiReset  = "\033[0m"
	ansiYellow = "\033[33m" // Yellow for changed values
)

// readlineWriter wraps log output to work with readline
type readlineWriter struct {
	rl *readline.Instance
}

func (w *readlineWriter) Write(p []byte) (n int, err error) {
	if w.rl != nil {
		w.rl.Clean()
	}
	n, err = os.Stderr.Write(p)
	if w.rl != nil {
		w.rl.Refresh()
	}
	return n, err
}

// Global readline writer for log output
var rlWriter = &readlineWriter{}

// Console holds the interactive console state and the pieces of the simulator
// it drives
type Console struct {
	sim    *Simulator
	inject canbus.Bus // frames typed with "send" go here
	cancel context.CancelFunc

	watches       []WatchSpec
	headerPrinted bool
	columnWidths  []int
	prevValues    map[string]string // Track previous value per watch for change highlighting
	prevState     *sbox.State

	rl  *readline.Instance
	out io.Writer
}

// NewConsole creates console state writing to stdout
func NewConsole(sim *Simulator, inject canbus.Bus, cancel context.CancelFunc) *Console {
	return &Console{
		sim:        sim,
		inject:     inject,
		cancel:     cancel,
		prevValues: make(map[string]string),
		out:        os.Stdout,
	}
}

// print outputs a line, handling readline prompt properly
func (c *Console) print(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if c.rl != nil {
		c.rl.Clean()
		_, _ = fmt.Fprintln(c.out, line)
		c.rl.Refresh()
	} else {
		_, _ = fmt.Fprintln(c.out, line)
	}
}

// AddWatch adds a watch and re-sorts the list
func (c *Console) AddWatch(spec WatchSpec) {
	for _, w := range c.watches {
		if w.String() == spec.String() {
			c.print("Already watching: %s", spec.String())
			return
		}
	}

	c.watches = append(c.watches, spec)
	slices.SortFunc(c.watches, func(a, b WatchSpec) int {
		return strings.Compare(a.ShortName(), b.ShortName())
	})
	c.headerPrinted = false
	c.print("Watching: %s", spec.String())
}

// RemoveWatch removes a watch, matching an RX ID at any percentile when
// exactly one is watched
func (c *Console) RemoveWatch(spec WatchSpec, exact bool) error {
	var matches []int
	for i, w := range c.watches {
		if w.String() == spec.String() {
			matches = []int{i}
			break
		}
		if !exact && w.Field == spec.Field && w.ID == spec.ID {
			matches = append(matches, i)
		}
	}

	switch len(matches) {
	case 0:
		return fmt.Errorf("no watch found for: %s", spec.String())
	case 1:
		removed := c.watches[matches[0]]
		c.watches = slices.Delete(c.watches, matches[0], matches[0]+1)
		c.headerPrinted = false
		c.print("Unwatched: %s", removed.String())
		return nil
	default:
		return fmt.Errorf("multiple watches for %s, use -p to pick one", spec.String())
	}
}

// RemoveAll removes all watches
func (c *Console) RemoveAll() {
	c.watches = c.watches[:0]
	c.headerPrinted = false
	c.print("All watches removed")
}

// PrintHeader prints the column headers
func (c *Console) PrintHeader() {
	if len(c.watches) == 0 {
		return
	}

	c.columnWidths = make([]int, len(c.watches))
	parts := make([]string, 0, len(c.watches))
	for i, w := range c.watches {
		c.columnWidths[i] = len(w.ShortName())
		parts = append(parts, w.ShortName())
	}
	c.print("%s", strings.Join(parts, " | "))
	c.headerPrinted = true
	c.prevValues = make(map[string]string) // Reset previous values when header changes
}

// PrintRow prints the current values for all watches (only if changed)
func (c *Console) PrintRow(data StatusData) {
	if len(c.watches) == 0 {
		return
	}

	if !c.headerPrinted {
		c.PrintHeader()
	}

	parts := make([]string, 0, len(c.watches))
	anyChanged := false
	newValues := make(map[string]string, len(c.watches))

	for i, w := range c.watches {
		value := w.GetValue(data)
		key := w.String()
		newValues[key] = value

		width := max(c.columnWidths[i], len(value))
		c.columnWidths[i] = width

		prevValue, hasPrev := c.prevValues[key]
		if !hasPrev || prevValue != value {
			anyChanged = true
			parts = append(parts, fmt.Sprintf("%s%*s%s", ansiYellow, width, value, ansiReset))
		} else {
			parts = append(parts, fmt.Sprintf("%*s", width, value))
		}
	}

	if anyChanged {
		c.print("%s", strings.Join(parts, " | "))
		c.prevValues = newValues
	}
}

// UpdateData handles a new sample: contactor changes always print, watches
// print a row when something changed
func (c *Console) UpdateData(data StatusData) {
	s := data.SBox
	if c.prevState == nil || c.prevState.Contactors != s.Contactors || c.prevState.Setup != s.Setup {
		c.print("Contactors: %s (setup %s)", s.Contactors, yesNo(s.Setup))
	}
	c.prevState = &s

	c.PrintRow(data)
}

// PrintStatus prints a one-line summary of the model
func (c *Console) PrintStatus() {
	data := c.sim.sample(time.Now())
	s := data.SBox
	c.print("Pack %.1f V, current %.1f A, output %.1f V", s.Voltage, s.Current, s.OutputVoltage)
	precharge := ""
	if s.Precharging {
		precharge = " (pre-charging)"
	}
	c.print("Setup %s, %s%s", yesNo(s.Setup), s.Contactors, precharge)
	c.print("Receiving %d msg/s", data.Rate)
	if c.sim.Brake != nil {
		c.print("Braking %s", onOffString(data.Braking))
	}
}

// ListMessages prints the transmitted messages
func (c *Console) ListMessages() {
	msgs := c.sim.Messages.Sorted()
	c.print("Transmitting (%d):", len(msgs))
	for _, m := range msgs {
		state := "on"
		if !m.Enabled() {
			state = "off"
		}
		c.print("  %-3s %s  %s", state, m, m.Peek())
	}
}

// ListRxIDs prints statistics for every received ID
func (c *Console) ListRxIDs() {
	ids := c.sim.Stats.Snapshot()
	if len(ids) == 0 {
		c.print("Nothing received yet")
		return
	}
	now := time.Now()
	c.print("Received (%d IDs):", len(ids))
	for _, s := range ids {
		c.print("  %#05x  count %-8d p50 %-9s min %-9s max %-9s age %-8s %s",
			s.ID, s.Count, formatPeriod(s.P50), formatPeriod(s.Min), formatPeriod(s.Max),
			now.Sub(s.LastSeen).Truncate(time.Millisecond), s.Last)
	}
}

// SetEnabled enables or disables one message or all of them
func (c *Console) SetEnabled(target string, enabled bool) error {
	if target == "all" {
		c.sim.Messages.SetAllEnabled(enabled)
		c.print("All messages %s", enabledString(enabled))
		return nil
	}
	id, err := parseID(target)
	if err != nil {
		return err
	}
	m, ok := c.sim.Messages.Lookup(id)
	if !ok {
		return fmt.Errorf("not transmitting %#03x (try 'list')", id)
	}
	m.SetEnabled(enabled)
	c.print("%s %s", m, enabledString(enabled))
	return nil
}

func enabledString(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}

// Send puts a frame typed in candump form on the bus
func (c *Console) Send(ctx context.Context, text string) error {
	f, err := canbus.ParseFrame(text)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := c.inject.Send(sendCtx, f); err != nil {
		return fmt.Errorf("send %s: %w", f.Candump(), err)
	}
	c.print("Sent %s", f)
	return nil
}

func (c *Console) printHelp() {
	c.print("Commands:")
	c.print("  status                      - Show the SBox state")
	c.print("  voltage <V>                 - Set pack voltage (%.0f..%.0f)", sbox.MinVoltage, sbox.MaxVoltage)
	c.print("  current <A>                 - Set current (%.0f..%.0f)", sbox.MinCurrent, sbox.MaxCurrent)
	c.print("  list                        - List transmitted messages")
	c.print("  enable <id|all>             - Resume transmitting a message")
	c.print("  disable <id|all>            - Stop transmitting a message")
	c.print("  ids                         - Show received IDs and their timing")
	c.print("  watch <field>               - Watch %s", strings.Join(watchFields, ", "))
	c.print("  watch <id> [-p <1|50|99>]   - Watch the period of a received ID")
	c.print("  unwatch <field|id> | --all  - Remove watches")
	c.print("  send <id>#<data>            - Send a frame, e.g. send 100#A6000000")
	c.print("  braking on|off              - Press or release the brake (ieb group)")
	c.print("  help                        - Show this help")
	c.print("  quit                        - Exit")
}

// handleCommand processes one console command
func (c *Console) handleCommand(ctx context.Context, cmd string) error {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "status":
		c.PrintStatus()

	case "voltage", "current":
		if len(parts) != 2 {
			return fmt.Errorf("usage: %s <value>", parts[0])
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q", parts[0], parts[1])
		}
		if parts[0] == "voltage" {
			return c.sim.SBox.SetVoltage(v)
		}
		return c.sim.SBox.SetCurrent(v)

	case "list":
		c.ListMessages()

	case "enable", "disable":
		if len(parts) != 2 {
			return fmt.Errorf("usage: %s <id|all>", parts[0])
		}
		return c.SetEnabled(parts[1], parts[0] == "enable")

	case "ids":
		c.ListRxIDs()

	case "watch":
		spec, err := parseWatchSpec(parts[1:])
		if err != nil {
			return err
		}
		c.AddWatch(*spec)

	case "unwatch":
		if len(parts) < 2 {
			return fmt.Errorf("usage: unwatch <field|id> [-p <percentile>] | unwatch --all")
		}
		if parts[1] == "--all" {
			c.RemoveAll()
			return nil
		}
		spec, err := parseWatchSpec(parts[1:])
		if err != nil {
			return err
		}
		return c.RemoveWatch(*spec, slices.Contains(parts, "-p"))

	case "send":
		if len(parts) != 2 {
			return fmt.Errorf("usage: send <id>#<data>")
		}
		return c.Send(ctx, parts[1])

	case "braking":
		if c.sim.Brake == nil {
			return fmt.Errorf("braking needs the %s message group", GroupIEB)
		}
		if len(parts) != 2 || (parts[1] != "on" && parts[1] != "off") {
			return fmt.Errorf("usage: braking on|off")
		}
		c.sim.Brake.SetBraking(parts[1] == "on")
		c.print("Braking %s", parts[1])

	case "help":
		c.printHelp()

	case "quit", "exit":
		c.cancel()

	default:
		return fmt.Errorf("unknown command: %s (try 'help')", parts[0])
	}
	return nil
}

// readlineLoop runs the readline loop, sending commands to the channel
func readlineLoop(
	ctx context.Context,
	cancel context.CancelFunc,
	rl *readline.Instance,
	commandChan chan<- string,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			cancel() // Ctrl+C pressed, shutdown the app
			return
		}
		if err != nil {
			cancel() // EOF (Ctrl+D) also quits
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		select {
		case commandChan <- line:
		case <-ctx.Done():
			return
		}
	}
}

// getHistoryFilePath returns the path for the console history file
func getHistoryFilePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // No history if we can't find home
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheDir, "sbox-sim")
	_ = os.MkdirAll(dir, 0750)
	return filepath.Join(dir, "history")
}

func newCompleter() *readline.PrefixCompleter {
	fields := make([]readline.PrefixCompleterInterface, 0, len(watchFields))
	for _, f := range watchFields {
		fields = append(fields, readline.PcItem(f))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("status"),
		readline.PcItem("voltage"),
		readline.PcItem("current"),
		readline.PcItem("list"),
		readline.PcItem("enable", readline.PcItem("all")),
		readline.PcItem("disable", readline.PcItem("all")),
		readline.PcItem("ids"),
		readline.PcItem("watch", fields...),
		readline.PcItem("unwatch", append(fields, readline.PcItem("--all"))...),
		readline.PcItem("send"),
		readline.PcItem("braking", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// consoleWorker runs the interactive console
func consoleWorker(
	ctx context.Context,
	cancel context.CancelFunc,
	sim *Simulator,
	inject canbus.Bus,
	dataChan <-chan StatusData,
) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "sbox> ",
		HistoryFile:  getHistoryFilePath(),
		AutoComplete: newCompleter(),
	})
	if err != nil {
		log.Printf("Console: readline init failed: %v\n", err)
		return
	}
	defer func() {
		_ = rl.Close()
		rlWriter.rl = nil // Clear readline reference on exit
		log.SetOutput(os.Stderr)
	}()

	// Redirect log output through readline-aware writer
	rlWriter.rl = rl
	log.SetOutput(rlWriter)

	log.Println("Console started (type 'help' for commands)")

	commandChan := make(chan string, 10)
	console := NewConsole(sim, inject, cancel)
	console.rl = rl

	go readlineLoop(ctx, cancel, rl, commandChan)

	for {
		select {
		case cmd := <-commandChan:
			if err := console.handleCommand(ctx, cmd); err != nil {
				log.Printf("Error: %v\n", err)
			}
		case data := <-dataChan:
			console.UpdateData(data)
		case <-ctx.Done():
			return
		}
	}
}
