package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"github.com/redis/go-redis/v9"
)

const (
	// KindP2PTransfer indicates a native P2P payment.
	KindP2PTransfer = "p2p_transfer"
	// KindDeposit is emitted after a committed depositETH.
	KindDeposit = "bank.deposit"
	// KindWithdraw is emitted after a committed withdrawETH.
	KindWithdraw = "bank.withdraw"
	// KindBorrow is emitted after a committed borrowLSB.
	KindBorrow = "bank.borrow"
	// KindReturn is emitted after a committed returnLSB.
	KindReturn = "bank.return"
	// KindMinterChanged is emitted when the credit token minter is reassigned.
	KindMinterChanged = "token.minter_changed"
	// KindTokenTransfer is emitted after a credit token transfer.
	KindTokenTransfer = "token.transfer"
)

// Message describes a notification payload.
type Message struct {
	Kind        string            `json:"kind"`
	Destination string            `json:"destination"`
	Body        string            `json:"body"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	At          time.Time         `json:"at"`
}

// Notifier delivers notifications to downstream systems.
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
	attrs := []any{"kind", message.Kind, "destination", message.Destination, "body", message.Body}
	for k, v := range message.Attributes {
		attrs = append(attrs, k, v)
	}
	n.logger.Info("notification", attrs...)
	return nil
}

// RedisNotifier publishes JSON encoded messages on a Redis pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier builds a notifier publishing to channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// Send publishes the message.
func (n *RedisNotifier) Send(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// DefaultEmailTimeout bounds a single SMTP delivery.
const DefaultEmailTimeout = 5 * time.Second

// EmailNotifier mails every message to a fixed operator list over SMTP.
type EmailNotifier struct {
	addr    string
	from    string
	to      []string
	timeout time.Duration
	deliver func(e *email.Email, addr string) error
}

// NewEmailNotifier builds an SMTP notifier. addr is host:port of an
// unauthenticated relay.
func NewEmailNotifier(addr, from string, to []string) *EmailNotifier {
	return &EmailNotifier{
		addr:    addr,
		from:    from,
		to:      to,
		timeout: DefaultEmailTimeout,
		deliver: func(e *email.Email, addr string) error { return e.Send(addr, nil) },
	}
}

// Send mails the message. It returns once the relay accepts it, ctx is done
// or the delivery timeout expires; a delivery still in flight then finishes
// in the background.
func (n *EmailNotifier) Send(ctx context.Context, message Message) error {
	e := email.NewEmail()
	e.From = n.from
	e.To = n.to
	e.Subject = fmt.Sprintf("[LSBank] %s", message.Kind)
	e.Text = []byte(renderText(message))

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.deliver(e, n.addr) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
}

func renderText(message Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", message.Body)
	if message.Destination != "" {
		fmt.Fprintf(&b, "account: %s\n", message.Destination)
	}
	for k, v := range message.Attributes {
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	if !message.At.IsZero() {
		fmt.Fprintf(&b, "at: %s\n", message.At.UTC().Format(time.RFC3339))
	}
	return b.String()
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Send delivers to all notifiers even if some fail.
func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
