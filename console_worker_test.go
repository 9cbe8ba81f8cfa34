package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryansname/sbox-sim/canbus"
	"github.com/ryansname/sbox-sim/rxstats"
	"github.com/ryansname/sbox-sim/sbox"
)

func newTestConsole(t *testing.T, groups ...string) (*Console, *bytes.Buffer, canbus.Bus) {
	t.Helper()
	sim, err := newSimulator(Config{Voltage: sbox.DefaultVoltage, Groups: groups})
	require.NoError(t, err)

	lb := canbus.NewLoopbackBus()
	t.Cleanup(func() { _ = lb.Close() })
	controller := lb.Open()

	var out bytes.Buffer
	c := NewConsole(sim, lb.Open(), func() {})
	c.out = &out
	return c, &out, controller
}

func TestParseWatchSpec(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *WatchSpec
		err      string
	}{
		{name: "field", args: []string{"voltage"}, expected: &WatchSpec{Field: "voltage"}},
		{name: "id defaults to p50", args: []string{"0x100"}, expected: &WatchSpec{ID: 0x100, Percentile: 50}},
		{name: "bare hex id", args: []string{"300"}, expected: &WatchSpec{ID: 0x300, Percentile: 50}},
		{name: "id with percentile", args: []string{"100", "-p", "99"}, expected: &WatchSpec{ID: 0x100, Percentile: 99}},
		{name: "empty", args: nil, err: "usage"},
		{name: "unknown field", args: []string{"soc"}, err: "unknown field or ID"},
		{name: "percentile on field", args: []string{"voltage", "-p", "50"}, err: "only applies"},
		{name: "bad percentile", args: []string{"100", "-p", "66"}, err: "-p must be"},
		{name: "missing percentile", args: []string{"100", "-p"}, err: "requires a value"},
		{name: "unknown option", args: []string{"100", "-m", "5"}, err: "unknown option"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := parseWatchSpec(tt.args)
			if tt.err != "" {
				assert.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, spec)
		})
	}
}

func TestWatchSpec_Names(t *testing.T) {
	assert.Equal(t, "voltage", WatchSpec{Field: "voltage"}.String())
	assert.Equal(t, "0x100", WatchSpec{ID: 0x100, Percentile: 50}.String())
	assert.Equal(t, "0x100 -p 99", WatchSpec{ID: 0x100, Percentile: 99}.String())
	assert.Equal(t, "0x100 p99", WatchSpec{ID: 0x100, Percentile: 99}.ShortName())
}

func TestWatchSpec_GetValue(t *testing.T) {
	data := StatusData{
		SBox: sbox.State{
			Voltage:       350,
			Current:       -12.5,
			OutputVoltage: 42.123,
			Setup:         true,
			Contactors:    sbox.Contactors{Negative: true, Precharge: true},
		},
		Rate: 150,
		RxIDs: []rxstats.IDStats{
			{ID: 0x100, Count: 10, P1: 9 * time.Millisecond, P50: 10 * time.Millisecond, P99: 12 * time.Millisecond},
			{ID: 0x300, Count: 1},
		},
	}

	assert.Equal(t, "350", WatchSpec{Field: "voltage"}.GetValue(data))
	assert.Equal(t, "-12.50", WatchSpec{Field: "current"}.GetValue(data))
	assert.Equal(t, "42.12", WatchSpec{Field: "output"}.GetValue(data))
	assert.Equal(t, "yes", WatchSpec{Field: "setup"}.GetValue(data))
	assert.Equal(t, "off", WatchSpec{Field: "pos"}.GetValue(data))
	assert.Equal(t, "on", WatchSpec{Field: "neg"}.GetValue(data))
	assert.Equal(t, "on", WatchSpec{Field: "pch"}.GetValue(data))
	assert.Equal(t, "150", WatchSpec{Field: "rate"}.GetValue(data))

	assert.Equal(t, "10.0ms", WatchSpec{ID: 0x100, Percentile: 50}.GetValue(data))
	assert.Equal(t, "9.0ms", WatchSpec{ID: 0x100, Percentile: 1}.GetValue(data))
	assert.Equal(t, "12.0ms", WatchSpec{ID: 0x100, Percentile: 99}.GetValue(data))
	assert.Equal(t, "-", WatchSpec{ID: 0x300, Percentile: 50}.GetValue(data), "one frame has no interval")
	assert.Equal(t, "-", WatchSpec{ID: 0x555, Percentile: 50}.GetValue(data))
}

func TestConsole_WatchAndUnwatch(t *testing.T) {
	c, out, _ := newTestConsole(t)
	ctx := context.Background()

	require.NoError(t, c.handleCommand(ctx, "watch voltage"))
	require.NoError(t, c.handleCommand(ctx, "watch 100"))
	require.NoError(t, c.handleCommand(ctx, "watch 100 -p 99"))
	assert.Len(t, c.watches, 3)

	require.NoError(t, c.handleCommand(ctx, "watch voltage"))
	assert.Len(t, c.watches, 3)
	assert.Contains(t, out.String(), "Already watching: voltage")

	// Two watches on 0x100, the bare ID removes the p50 one exactly
	require.NoError(t, c.handleCommand(ctx, "unwatch 100"))
	assert.Len(t, c.watches, 2)

	// Now only the p99 one is left, so the bare ID finds it
	require.NoError(t, c.handleCommand(ctx, "unwatch 0x100"))
	assert.Len(t, c.watches, 1)

	assert.ErrorContains(t, c.handleCommand(ctx, "unwatch current"), "no watch found")

	require.NoError(t, c.handleCommand(ctx, "unwatch --all"))
	assert.Empty(t, c.watches)
}

func TestConsole_PrintRowOnlyOnChange(t *testing.T) {
	c, out, _ := newTestConsole(t)
	c.AddWatch(WatchSpec{Field: "voltage"})
	out.Reset()

	data := StatusData{SBox: sbox.State{Voltage: 350}}
	c.PrintRow(data)
	assert.Contains(t, out.String(), "voltage\n")
	assert.Contains(t, out.String(), ansiYellow+"    350"+ansiReset)

	out.Reset()
	c.PrintRow(data)
	assert.Empty(t, out.String())

	data.SBox.Voltage = 300
	c.PrintRow(data)
	assert.Contains(t, out.String(), "300")
}

func TestConsole_UpdateDataReportsContactorChanges(t *testing.T) {
	c, out, _ := newTestConsole(t)

	data := StatusData{}
	c.UpdateData(data)
	assert.Contains(t, out.String(), "Contactors: pos=OFF neg=OFF pch=OFF (setup no)")

	out.Reset()
	c.UpdateData(data)
	assert.Empty(t, out.String())

	data.SBox.Setup = true
	data.SBox.Contactors = sbox.Contactors{Negative: true, Precharge: true}
	c.UpdateData(data)
	assert.Contains(t, out.String(), "pos=OFF neg=ON pch=ON (setup yes)")
}

func TestConsole_SetPoints(t *testing.T) {
	c, _, _ := newTestConsole(t)
	ctx := context.Background()

	require.NoError(t, c.handleCommand(ctx, "voltage 380.5"))
	assert.Equal(t, 380.5, c.sim.SBox.Voltage())

	require.NoError(t, c.handleCommand(ctx, "current -20"))
	assert.Equal(t, -20.0, c.sim.SBox.Current())

	assert.ErrorIs(t, c.handleCommand(ctx, "voltage 900"), sbox.ErrOutOfRange)
	assert.ErrorContains(t, c.handleCommand(ctx, "current lots"), "invalid current")
	assert.ErrorContains(t, c.handleCommand(ctx, "voltage"), "usage")
	assert.Equal(t, 380.5, c.sim.SBox.Voltage())
}

func TestConsole_EnableDisable(t *testing.T) {
	c, out, _ := newTestConsole(t)
	ctx := context.Background()

	require.NoError(t, c.handleCommand(ctx, "disable 0x210"))
	m, ok := c.sim.Messages.Lookup(sbox.IDPackVoltage)
	require.True(t, ok)
	assert.False(t, m.Enabled())
	assert.Contains(t, out.String(), "disabled")

	require.NoError(t, c.handleCommand(ctx, "disable all"))
	for _, m := range c.sim.Messages.Sorted() {
		assert.False(t, m.Enabled(), "%s", m)
	}

	require.NoError(t, c.handleCommand(ctx, "enable all"))
	for _, m := range c.sim.Messages.Sorted() {
		assert.True(t, m.Enabled(), "%s", m)
	}

	assert.ErrorContains(t, c.handleCommand(ctx, "enable 5A0"), "not transmitting")
	assert.ErrorContains(t, c.handleCommand(ctx, "enable xyz"), "invalid CAN ID")
}

func TestConsole_List(t *testing.T) {
	c, out, _ := newTestConsole(t)
	require.NoError(t, c.handleCommand(context.Background(), "list"))

	assert.Contains(t, out.String(), "Transmitting (3):")
	assert.Contains(t, out.String(), "0x200 - Current (100 Hz)")
	assert.Contains(t, out.String(), "0x210 - PackVoltage (100 Hz)")
	assert.Contains(t, out.String(), "0x220 - PostContactorVoltage (100 Hz)")
}

func TestConsole_Send(t *testing.T) {
	c, out, controller := newTestConsole(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, c.handleCommand(ctx, "send 100#AA000000"))
	assert.Contains(t, out.String(), "Sent 100 [4] AA 00 00 00")

	f, err := controller.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, canbus.MustFrame(0x100, []byte{0xAA, 0, 0, 0}), f)

	assert.Error(t, c.handleCommand(ctx, "send 100AA"))
	assert.ErrorContains(t, c.handleCommand(ctx, "send"), "usage")
}

func TestConsole_Braking(t *testing.T) {
	c, _, _ := newTestConsole(t)
	assert.ErrorContains(t, c.handleCommand(context.Background(), "braking on"), "ieb")

	c, _, _ = newTestConsole(t, GroupIEB)
	require.NoError(t, c.handleCommand(context.Background(), "braking on"))
	assert.True(t, c.sim.Brake.Braking())
	require.NoError(t, c.handleCommand(context.Background(), "braking off"))
	assert.False(t, c.sim.Brake.Braking())
	assert.ErrorContains(t, c.handleCommand(context.Background(), "braking hard"), "usage")
}

func TestConsole_QuitAndUnknown(t *testing.T) {
	c, _, _ := newTestConsole(t)
	quit := false
	c.cancel = func() { quit = true }

	assert.ErrorContains(t, c.handleCommand(context.Background(), "launch"), "unknown command")
	assert.NoError(t, c.handleCommand(context.Background(), "   "))
	assert.False(t, quit)

	require.NoError(t, c.handleCommand(context.Background(), "quit"))
	assert.True(t, quit)
}
