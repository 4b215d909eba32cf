package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"github.com/bwmarrin/discordgo"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"
)

type fakeAdapter struct {
	platform string
	handler  MessageHandler
	sent     []*OutboundMessage
}

func (f *fakeAdapter) Platform() string              { return f.platform }
func (f *fakeAdapter) Connect(context.Context) error { return nil }
func (f *fakeAdapter) OnMessage(h MessageHandler)    { f.handler = h }
func (f *fakeAdapter) Close() error                  { return nil }
func (f *fakeAdapter) Send(_ context.Context, m *OutboundMessage) error {
	f.sent = append(f.sent, m)
	return nil
}

type receivedEvent struct{ typ, data, source string }

type fakeReceiver struct{ got []receivedEvent }

func (r *fakeReceiver) ReceiveEvent(eventType, data, source string) {
	r.got = append(r.got, receivedEvent{eventType, data, source})
}

func TestInboundMapsToSpeechIn(t *testing.T) {
	rec := &fakeReceiver{}
	g := NewGateway(rec, zap.NewNop())
	slackA := &fakeAdapter{platform: "slack"}
	g.Register(slackA)

	slackA.handler(&InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U1", Content: "hello", ReplyTo: "111.1"})
	slackA.handler(&InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U1", Content: "   "})

	if len(rec.got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.got))
	}
	if ev := rec.got[0]; ev.typ != cognitive.ModalitySpeechIn || ev.data != "hello" || ev.source != "slack:U1" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestExecuteRepliesToLastConversation(t *testing.T) {
	g := NewGateway(&fakeReceiver{}, zap.NewNop())
	slackA := &fakeAdapter{platform: "slack"}
	discordA := &fakeAdapter{platform: "discord"}
	g.Register(slackA)
	g.Register(discordA)
	ctx := context.Background()

	if err := g.Execute(ctx, cognitive.Action{Type: cognitive.ModalitySpeechOut, Data: "anyone?"}); !errors.Is(err, ErrNoConversation) {
		t.Fatalf("expected ErrNoConversation, got %v", err)
	}

	slackA.handler(&InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U1", Content: "hi", ReplyTo: "111.1"})

	if err := g.Execute(ctx, cognitive.Action{Type: cognitive.ModalitySpeechOut, Data: "hello!"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(slackA.sent) != 1 || slackA.sent[0].ChannelID != "C1" || slackA.sent[0].ReplyTo != "111.1" {
		t.Fatalf("unexpected slack sends %+v", slackA.sent)
	}

	if err := g.Execute(ctx, cognitive.Action{Type: "text", Data: "over here", Target: "discord:D9"}); err != nil {
		t.Fatalf("Execute with target: %v", err)
	}
	if len(discordA.sent) != 1 || discordA.sent[0].ChannelID != "D9" {
		t.Fatalf("unexpected discord sends %+v", discordA.sent)
	}

	if err := g.Execute(ctx, cognitive.Action{Type: cognitive.ModalityMotion, Data: "wave"}); err != nil {
		t.Errorf("non-speech actions should be ignored, got %v", err)
	}
	if err := g.Execute(ctx, cognitive.Action{Type: cognitive.ModalitySpeechOut, Data: "x", Target: "irc:#lll"}); err == nil {
		t.Error("expected error for unregistered platform")
	}
	if got := g.Adapters(); len(got) != 2 || got[0] != "discord" || got[1] != "slack" {
		t.Errorf("unexpected adapters %v", got)
	}
}

func TestSlackInbound(t *testing.T) {
	if slackInbound(&slackevents.MessageEvent{Channel: "C1", User: "U1"}) != nil {
		t.Error("empty slack message should be ignored")
	}
	msg := slackInbound(&slackevents.MessageEvent{Channel: "C1", User: "U1", Text: "hey", TimeStamp: "222.2"})
	if msg.ReplyTo != "222.2" || msg.Platform != "slack" || msg.Content != "hey" {
		t.Errorf("unexpected message %+v", msg)
	}
	msg = slackInbound(&slackevents.MessageEvent{Channel: "C1", User: "U1", Text: "in thread", TimeStamp: "333.3", ThreadTimeStamp: "222.2"})
	if msg.ReplyTo != "222.2" {
		t.Errorf("expected thread timestamp, got %q", msg.ReplyTo)
	}
}

func TestDiscordInbound(t *testing.T) {
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "M1",
		ChannelID: "D1",
		Content:   "yo",
		Timestamp: time.Now(),
		Author:    &discordgo.User{ID: "A1", Username: "ana"},
	}}
	msg := discordInbound(m)
	if msg.Platform != "discord" || msg.UserID != "A1" || msg.ReplyTo != "M1" || msg.Content != "yo" {
		t.Errorf("unexpected message %+v", msg)
	}
}
