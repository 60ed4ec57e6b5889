package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"pfm/internal/analytics"
	"pfm/internal/core"
	"pfm/internal/services"
)

type fakeSender struct{ sent []tgbotapi.MessageConfig }

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

type fakeRecorder struct {
	scope core.Scope
	payer string
	err   error
}

func (f *fakeRecorder) RecordFromText(_ context.Context, _ services.Viewer, scope core.Scope, payer, text string) (services.ChatResult, error) {
	f.scope, f.payer = scope, payer
	if f.err != nil {
		return services.ChatResult{}, f.err
	}
	return services.ChatResult{
		Reply: "Got it",
		Transactions: []core.Transaction{
			{Amount: decimal.RequireFromString("12.5"), Item: text, Category: "food", Payer: payer},
		},
	}, nil
}

type fakeSnaps struct{ days int }

func (f *fakeSnaps) Snapshot(_ context.Context, _ services.Viewer, scope core.Scope, rangeDays int) (analytics.Snapshot, error) {
	f.days = rangeDays
	return analytics.Compose(nil, analytics.Params{RangeDays: rangeDays, Scope: scope, Now: time.Now()}), nil
}

func message(chatID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: 1, FirstName: "Alice"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return msg
}

func newTestHandler(rec TextRecorder, snaps SnapshotSource) *Handler {
	return NewHandler(rec, snaps, Config{ChatID: 42, UserID: "alice", GroupID: "g-1"}, nil)
}

func TestTextIsRecordedInConfiguredScope(t *testing.T) {
	rec := &fakeRecorder{}
	sender := &fakeSender{}
	h := newTestHandler(rec, &fakeSnaps{})

	h.HandleMessage(context.Background(), sender, message(42, "lunch"))

	if rec.scope != core.GroupScope("g-1") || rec.payer != "Alice" {
		t.Fatalf("recorded scope=%v payer=%q", rec.scope, rec.payer)
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].Text, "12.50  lunch (food)") {
		t.Fatalf("sent = %+v", sender.sent)
	}
	if sender.sent[0].ReplyToMessageID != 7 {
		t.Fatalf("reply not threaded: %+v", sender.sent[0])
	}
}

func TestOtherChatsIgnored(t *testing.T) {
	rec := &fakeRecorder{}
	sender := &fakeSender{}
	h := newTestHandler(rec, &fakeSnaps{})

	h.HandleMessage(context.Background(), sender, message(99, "lunch"))
	bot := message(42, "lunch")
	bot.From.IsBot = true
	h.HandleMessage(context.Background(), sender, bot)

	if len(sender.sent) != 0 || rec.payer != "" {
		t.Fatalf("expected no activity, sent=%v", sender.sent)
	}
}

func TestParserUnavailable(t *testing.T) {
	sender := &fakeSender{}
	h := newTestHandler(&fakeRecorder{err: fmt.Errorf("%w: timeout", services.ErrParserUnavailable)}, &fakeSnaps{})

	h.HandleMessage(context.Background(), sender, message(42, "lunch"))

	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].Text, "right now") {
		t.Fatalf("sent = %+v", sender.sent)
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		text     string
		wantDays int
		want     string
	}{
		{"/summary", 30, "Summary, last 30 days"},
		{"/summary 7", 7, "Summary, last 7 days"},
		{"/summary 14", 0, "Usage: /summary"},
		{"/help", 0, "/summary [days]"},
		{"/start", 0, "/summary [days]"},
		{"/nope", 0, "Unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			snaps := &fakeSnaps{}
			sender := &fakeSender{}
			h := newTestHandler(&fakeRecorder{}, snaps)

			h.HandleMessage(context.Background(), sender, message(42, tt.text))

			if snaps.days != tt.wantDays {
				t.Errorf("snapshot days = %d, want %d", snaps.days, tt.wantDays)
			}
			if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].Text, tt.want) {
				t.Fatalf("sent = %+v, want text containing %q", sender.sent, tt.want)
			}
		})
	}
}

func TestFormatSummary(t *testing.T) {
	d := analytics.Display{
		RangeDays:     30,
		TotalExpenses: 120,
		TotalIncome:   1000,
		NetBalance:    880,
		SavingsRate:   88,
		ExpenseCategories: []analytics.DisplayCategory{
			{Name: "food", Amount: 80, Share: 67},
		},
		UserBreakdown:    []analytics.DisplayAmount{{Label: "Alice", Amount: 70}, {Label: "Bob", Amount: 50}},
		UsesFallbackData: true,
	}
	got := FormatSummary(d)
	for _, want := range []string{"sample data", "Expenses: 120", "Savings rate: 88%", "food 80 (67%)", "Bob 50"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}
