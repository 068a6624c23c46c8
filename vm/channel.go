package vm

import "context"

// ChanDir is a channel type's direction.
type ChanDir uint8

const (
	// ChanSendRecv is a bidirectional channel.
	ChanSendRecv ChanDir = iota
	// ChanSend is send-only.
	ChanSend
	// ChanRecv is receive-only.
	ChanRecv
)

func (d ChanDir) String() string {
	switch d {
	case ChanSend:
		return "chan<-"
	case ChanRecv:
		return "<-chan"
	default:
		return "chan"
	}
}

// ChannelObj backs a channel value with a native Go channel, so select,
// buffering and close semantics come from the host scheduler.
type ChannelObj struct {
	Meta Meta
	ch   chan Value
	cap  int
}

// NewChannelObj creates a channel with the given buffer size.
func NewChannelObj(capacity int, meta Meta) *ChannelObj {
	return &ChannelObj{Meta: meta, ch: make(chan Value, capacity), cap: capacity}
}

// Send blocks until v is accepted or ctx is done.
func (c *ChannelObj) Send(ctx context.Context, v Value) error {
	select {
	case c.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks until a value arrives, the channel closes, or ctx is done.
// ok is false when the channel is closed and drained.
func (c *ChannelObj) Recv(ctx context.Context) (v Value, ok bool, err error) {
	select {
	case v, ok = <-c.ch:
		return v, ok, nil
	case <-ctx.Done():
		return Value{}, false, ctx.Err()
	}
}

// TrySend attempts a non-blocking send.
func (c *ChannelObj) TrySend(v Value) bool {
	select {
	case c.ch <- v:
		return true
	default:
		return false
	}
}

// TryRecv attempts a non-blocking receive. received is false when the
// channel is empty; ok is false when it is closed and drained.
func (c *ChannelObj) TryRecv() (v Value, ok bool, received bool) {
	select {
	case v, ok = <-c.ch:
		return v, ok, true
	default:
		return Value{}, false, false
	}
}

// Close closes the channel. Closing twice is fatal, as in the source
// language.
func (c *ChannelObj) Close() {
	close(c.ch)
}

// Len returns the number of buffered values.
func (c *ChannelObj) Len() int {
	return len(c.ch)
}

// Cap returns the buffer capacity.
func (c *ChannelObj) Cap() int {
	return c.cap
}
