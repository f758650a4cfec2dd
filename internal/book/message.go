// Package book reconstructs per-market order books from an initial
// snapshot plus an unbounded sequence of incremental deltas, and serves
// top-N views of the result. Message variants are tagged at the
// transport boundary by the vendor adapters; nothing in this package
// re-infers message structure from payload shape.
package book

// Side identifies one side of the book.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// Level is one price level: price in canonical fraction, positive size.
type Level struct {
	Price float64
	Size  float64
}

// Message is a tagged order-book frame: Snapshot, Deltas, or
// Unrecognized. Adapters produce exactly one of the three.
type Message interface {
	isMessage()
}

// Snapshot fully replaces both sides of a book.
type Snapshot struct {
	Bids []Level
	Asks []Level
}

func (Snapshot) isMessage() {}

// Delta mutates a single price level. Exactly one of Size (absolute
// replace) or Change (relative adjustment) is set.
type Delta struct {
	Side   Side
	Price  float64
	Size   *float64
	Change *float64
}

// Deltas is a batch of deltas applied in order.
type Deltas []Delta

func (Deltas) isMessage() {}

// Unrecognized marks a frame the adapter declared as orderbook but could
// not map to a snapshot or delta, e.g. an unknown side token. The
// reconciler surfaces it as a reconciliation gap.
type Unrecognized struct {
	Reason string
}

func (Unrecognized) isMessage() {}
