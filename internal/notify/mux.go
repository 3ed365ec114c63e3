package notify

import (
	"context"
	"fmt"
	"log/slog"

	"coverguard/internal/domain"
)

// ChannelMux routes messages to a per-channel Sender so email and SMS
// transports can be wired independently.
type ChannelMux struct {
	senders map[domain.Channel]Sender
}

func NewChannelMux() *ChannelMux {
	return &ChannelMux{senders: make(map[domain.Channel]Sender)}
}

func (m *ChannelMux) Register(channel domain.Channel, sender Sender) *ChannelMux {
	m.senders[channel] = sender
	return m
}

func (m *ChannelMux) Send(ctx context.Context, msg Message) (Receipt, error) {
	sender, ok := m.senders[msg.Channel]
	if !ok {
		err := fmt.Errorf("no sender registered for channel %q", msg.Channel)
		return Receipt{Success: false, Error: err.Error()}, err
	}
	return sender.Send(ctx, msg)
}

// LogSender logs instead of delivering. It stands in for the SMS gateway in
// development environments where no gateway is wired.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) (Receipt, error) {
	subject, _ := Render(msg)
	s.log.Info("send skipped, no transport wired",
		"channel", msg.Channel,
		"kind", string(msg.Kind),
		"recipient", msg.Recipient,
		"subject", subject,
	)
	return Receipt{Success: true, ID: "logged"}, nil
}
