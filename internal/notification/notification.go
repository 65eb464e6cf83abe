package notification

import (
	"context"
	"log/slog"
	"math/big"
)

const (
	// KindTransfer is emitted when value moves between two accounts.
	KindTransfer = "transfer"
	// KindMint is emitted when the admin minter credits an account.
	KindMint = "mint"
	// KindBurn is emitted when value is sent to the zero address.
	KindBurn = "burn"
)

// Event describes one ledger mutation. Addresses use the chain:value form.
type Event struct {
	Kind  string
	From  string
	To    string
	Denom string
	Value *big.Int
}

// Notifier delivers ledger events to downstream observers.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// LoggerNotifier writes events to a structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the event to the logger at debug level.
func (n *LoggerNotifier) Send(ctx context.Context, event Event) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.DebugContext(ctx, "ledger event",
		slog.String("kind", event.Kind),
		slog.String("from", event.From),
		slog.String("to", event.To),
		slog.String("denom", event.Denom),
		slog.String("value", event.Value.String()),
	)
	return nil
}

// Recorder keeps every event in memory. Used by tests.
type Recorder struct {
	Events []Event
}

// Send appends the event.
func (r *Recorder) Send(_ context.Context, event Event) error {
	r.Events = append(r.Events, event)
	return nil
}
