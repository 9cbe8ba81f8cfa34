package canbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackBus_SendReceive_MultiEndpoint(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()

	a := bus.Open()
	b := bus.Open()
	c := bus.Open()
	defer a.Close()
	defer b.Close()
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	send := MustFrame(0x321, []byte("hello"))
	require.NoError(t, a.Send(ctx, send))

	gotB, err := b.Receive(ctx)
	require.NoError(t, err)
	gotC, err := c.Receive(ctx)
	require.NoError(t, err)

	assert.Equal(t, send, gotB)
	assert.Equal(t, send, gotC)
	assert.Equal(t, "321 [5] 68 65 6C 6C 6F", gotB.String())
}

func TestLoopbackBus_SenderDoesNotReceiveOwnFrames(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	a := bus.Open()

	require.NoError(t, a.Send(context.Background(), MustFrame(0x100, []byte{0})))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := a.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoopbackBus_RejectsInvalidFrames(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	a := bus.Open()

	err := a.Send(context.Background(), Frame{ID: 0x800})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestLoopbackBus_CloseBehavior(t *testing.T) {
	bus := NewLoopbackBus()
	a := bus.Open()
	b := bus.Open()
	ctx := context.Background()

	require.NoError(t, a.Close())
	_, err := a.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Send(ctx, MustFrame(0x1, nil)), ErrClosed)

	// Sending to a detached endpoint is not an error for the sender
	assert.NoError(t, b.Send(ctx, MustFrame(0x1, nil)))

	require.NoError(t, bus.Close())
	_, err = b.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Send(ctx, MustFrame(0x1, nil)), ErrClosed)

	late := bus.Open()
	_, err = late.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
