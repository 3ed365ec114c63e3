package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverguard/internal/domain"
)

func TestRender(t *testing.T) {
	cases := []struct {
		name        string
		msg         Message
		wantSubject string
		wantInBody  []string
	}{
		{
			name: "expiration reminder",
			msg: Message{Kind: KindExpirationReminder, Payload: map[string]any{
				"subcontractor": "Apex Scaffolding",
				"policyNumber":  "PL-4411",
				"severity":      "urgent",
				"expiresOn":     "2026-03-15",
			}},
			wantSubject: "Insurance expiry urgent: Apex Scaffolding",
			wantInBody:  []string{"PL-4411", "expires on 2026-03-15"},
		},
		{
			name: "expired reminder flips tense",
			msg: Message{Kind: KindExpirationReminder, Payload: map[string]any{
				"subcontractor": "Apex Scaffolding",
				"policyNumber":  "PL-4411",
				"severity":      "expired",
				"expiresOn":     "2026-03-01",
			}},
			wantSubject: "Insurance expiry expired: Apex Scaffolding",
			wantInBody:  []string{"expired on 2026-03-01"},
		},
		{
			name: "deficiency lists each finding",
			msg: Message{Kind: KindDeficiency, Payload: map[string]any{
				"subcontractor": "Apex Scaffolding",
				"deficiencies":  []string{"expired public liability", "coverage below contract minimum"},
			}},
			wantSubject: "Insurance certificate rejected: Apex Scaffolding",
			wantInBody:  []string{"- expired public liability\n", "- coverage below contract minimum\n"},
		},
		{
			name: "deficiency without findings",
			msg: Message{Kind: KindDeficiency, Payload: map[string]any{
				"subcontractor": "Apex Scaffolding",
			}},
			wantSubject: "Insurance certificate rejected: Apex Scaffolding",
			wantInBody:  []string{"- unspecified"},
		},
		{
			name: "follow-up counts days",
			msg: Message{Kind: KindFollowUp, Payload: map[string]any{
				"subcontractor":  "Apex Scaffolding",
				"followUpNumber": 2,
				"daysWaiting":    7,
			}},
			wantSubject: "Reminder 2: insurance certificate still outstanding",
			wantInBody:  []string{"7 days now"},
		},
		{
			name: "stop-work alert",
			msg: Message{Kind: KindStopWorkAlert, Payload: map[string]any{
				"subcontractor": "Apex Scaffolding",
				"project":       "Harbour Tower",
				"status":        "non_compliant",
			}},
			wantSubject: "Stop-work risk: Apex Scaffolding on Harbour Tower",
			wantInBody:  []string{"without valid insurance cover", "non_compliant"},
		},
		{
			name:        "unknown kind falls back",
			msg:         Message{Kind: Kind("other"), Payload: map[string]any{"message": "hello"}},
			wantSubject: "Coverguard notification",
			wantInBody:  []string{"hello"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subject, body := Render(tc.msg)
			assert.Equal(t, tc.wantSubject, subject)
			for _, want := range tc.wantInBody {
				assert.Contains(t, body, want)
			}
		})
	}
}

func TestChannelMux(t *testing.T) {
	ctx := context.Background()
	email := NewRecorder()
	sms := NewRecorder()
	mux := NewChannelMux().
		Register(domain.ChannelEmail, email).
		Register(domain.ChannelSMS, sms)

	_, err := mux.Send(ctx, Message{Recipient: "office@apex.test", Channel: domain.ChannelEmail, Kind: Kind("ping")})
	require.NoError(t, err)
	_, err = mux.Send(ctx, Message{Recipient: "+61400000001", Channel: domain.ChannelSMS, Kind: Kind("ping")})
	require.NoError(t, err)

	require.Len(t, email.Sent(), 1)
	require.Len(t, sms.Sent(), 1)

	receipt, err := mux.Send(ctx, Message{Channel: domain.Channel("fax"), Kind: Kind("ping")})
	require.Error(t, err)
	assert.False(t, receipt.Success)
	assert.Contains(t, receipt.Error, "fax")
}

func TestSMTPSenderConfig(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{})
	require.Error(t, err)

	sender, err := NewSMTPSender(SMTPConfig{Host: "mail.test", Port: 587, From: "noreply@coverguard.test"})
	require.NoError(t, err)

	receipt, err := sender.Send(context.Background(), Message{
		Recipient: "+61400000001", Channel: domain.ChannelSMS, Kind: KindStopWorkAlert,
	})
	require.Error(t, err)
	assert.False(t, receipt.Success)

	receipt, err = sender.Send(context.Background(), Message{Channel: domain.ChannelEmail, Kind: KindFollowUp})
	require.Error(t, err)
	assert.Contains(t, receipt.Error, "no recipient")
}

func TestLogSenderAlwaysSucceeds(t *testing.T) {
	sender := NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil)))

	receipt, err := sender.Send(context.Background(), Message{
		Recipient: "+61400000001", Channel: domain.ChannelSMS, Kind: KindStopWorkAlert,
	})
	require.NoError(t, err)
	assert.True(t, receipt.Success)
}

func TestRecorderFailOn(t *testing.T) {
	rec := NewRecorder()
	rec.FailOn = func(msg Message) error {
		if strings.HasSuffix(msg.Recipient, "@bounce.test") {
			return assert.AnError
		}
		return nil
	}

	_, err := rec.Send(context.Background(), Message{Recipient: "office@apex.test"})
	require.NoError(t, err)
	receipt, err := rec.Send(context.Background(), Message{Recipient: "dead@bounce.test"})
	require.Error(t, err)
	assert.False(t, receipt.Success)
	require.Len(t, rec.Sent(), 1)
}
