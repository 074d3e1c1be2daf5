package notification

import (
	"context"
	"log/slog"
	"sync"
)

const (
	// KindTxFinalized indicates a send cycle reached finalization.
	KindTxFinalized = "tx_finalized"
	// KindTxFailed indicates a send cycle failed or was declined.
	KindTxFailed = "tx_failed"
)

// Message describes a notification payload.
type Message struct {
	Kind          string
	Destination   string
	ExtrinsicHash string
	Body          string
}

// Notifier delivers transaction outcomes to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"hash", message.ExtrinsicHash,
		"body", message.Body,
	)
	return nil
}

// Recorder keeps sent messages in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Send(_ context.Context, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns the recorded messages in send order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
