package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jordan-wright/email"
	"github.com/redis/go-redis/v9"
)

type recordingNotifier struct {
	got []Message
	err error
}

func (r *recordingNotifier) Send(_ context.Context, msg Message) error {
	r.got = append(r.got, msg)
	return r.err
}

func TestMultiDeliversToAll(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("down")}
	ok := &recordingNotifier{}
	multi := Multi{failing, nil, ok}

	err := multi.Send(context.Background(), Message{Kind: KindDeposit})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.got) != 1 || len(failing.got) != 1 {
		t.Fatalf("expected both notifiers to receive the message")
	}
}

func TestRedisNotifierPublishes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "lsbank:events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n := NewRedisNotifier(client, "lsbank:events")
	sent := Message{Kind: KindBorrow, Destination: "0xabc", Body: "borrowed", At: time.Unix(100, 0).UTC()}
	if err := n.Send(ctx, sent); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got Message
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Kind != KindBorrow || got.Destination != "0xabc" {
			t.Fatalf("unexpected message %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestRenderText(t *testing.T) {
	text := renderText(Message{Body: "hello", Destination: "0x1", Attributes: map[string]string{"interest": "5"}})
	for _, want := range []string{"hello", "account: 0x1", "interest: 5"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}

func TestEmailNotifierGivesUpOnSlowRelay(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	n := NewEmailNotifier("smtp.invalid:25", "bank@lsbank.test", []string{"ops@lsbank.test"})
	n.timeout = 50 * time.Millisecond
	n.deliver = func(*email.Email, string) error {
		<-release
		return nil
	}

	start := time.Now()
	err := n.Send(context.Background(), Message{Kind: KindDeposit, Body: "deposited"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("send blocked for %s", elapsed)
	}
}

func TestEmailNotifierDelivers(t *testing.T) {
	var got *email.Email
	n := NewEmailNotifier("smtp.invalid:25", "bank@lsbank.test", []string{"ops@lsbank.test"})
	n.deliver = func(e *email.Email, addr string) error {
		got = e
		return nil
	}

	if err := n.Send(context.Background(), Message{Kind: KindBorrow, Body: "borrowed"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got == nil || got.Subject != "[LSBank] bank.borrow" || !strings.Contains(string(got.Text), "borrowed") {
		t.Fatalf("unexpected email %+v", got)
	}

	n.deliver = func(*email.Email, string) error { return errors.New("relay refused") }
	if err := n.Send(context.Background(), Message{Kind: KindBorrow}); err == nil || !strings.Contains(err.Error(), "relay refused") {
		t.Fatalf("expected relay error, got %v", err)
	}
}
