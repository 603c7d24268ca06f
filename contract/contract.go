// Package contract defines the surface shared by the on-chain contracts and
// their host: the per-call execution context, the event sink, and the event
// payload types. Contracts hold no locks and perform no I/O; the host
// serializes calls and owns persistence.
package contract

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the designated invalid sentinel account. Transfers,
// approvals and grants naming it are rejected; it appears in events only as
// the conventional counterparty for mints and burns.
var ZeroAddress common.Address

// Env is the execution context the host supplies with every contract call.
// Caller is the authenticated identity the call runs as.
type Env struct {
	Caller common.Address
	Height uint64
	Time   time.Time
}

// Event is a notification emitted by a contract operation. Events are
// observational only: they are never replayed to rebuild state.
type Event interface {
	EventName() string
}

// Sink receives events emitted during a contract call. The host provides
// the sink and decides whether the events are published (they are discarded
// when the call fails).
type Sink interface {
	Emit(Event)
}

// NopSink discards all events. Useful for dry runs and tests that do not
// care about the event stream.
type NopSink struct{}

func (NopSink) Emit(Event) {}
