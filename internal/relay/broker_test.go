package relay

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBrokerFiltersByFeed(t *testing.T) {
	b := NewBroker()
	_, all := b.Subscribe()
	_, only := b.Subscribe("chart-b")

	if err := b.PublishJSON("chart-a", "drawing.created", map[string]string{"id": "1"}); err != nil {
		t.Fatalf("PublishJSON() = %v; want nil", err)
	}
	b.Publish(Event{Feed: "chart-b", Kind: "drawing.deleted", Payload: []byte(`{}`)})

	if got := (<-all).Feed; got != "chart-a" {
		t.Fatalf("first event feed = %q; want chart-a", got)
	}
	if got := (<-all).Feed; got != "chart-b" {
		t.Fatalf("second event feed = %q; want chart-b", got)
	}
	evt := <-only
	if evt.Kind != "drawing.deleted" {
		t.Fatalf("filtered event kind = %q; want drawing.deleted", evt.Kind)
	}
	if evt.At.IsZero() {
		t.Fatal("Publish() left At unset")
	}
	select {
	case extra := <-only:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	_, _ = b.Subscribe()
	for i := 0; i < subscriberBufSize+3; i++ {
		b.Publish(Event{Feed: "x", Kind: "k"})
	}
	if got := b.Dropped(); got != 3 {
		t.Fatalf("Dropped() = %d; want 3", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	id, ch := b.Subscribe()
	b.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after Unsubscribe()")
	}
	if got := b.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() = %d; want 0", got)
	}
	b.Unsubscribe(id)
}

func TestParseFeeds(t *testing.T) {
	got := ParseFeeds(" a, ,b,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("ParseFeeds() = %v; want [a b]", got)
	}
	if got := ParseFeeds(""); got != nil {
		t.Fatalf("ParseFeeds(\"\") = %v; want nil", got)
	}
}

func TestSSEHandlerStreamsMatchingEvents(t *testing.T) {
	b := NewBroker()
	srv := httptest.NewServer(SSEHandler(b, 0))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?feeds=c1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET = %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q; want text/event-stream", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	b.Publish(Event{Feed: "other", Kind: "ignored", Payload: []byte(`{}`)})
	b.Publish(Event{Feed: "c1", Kind: "bounds.changed", Payload: []byte(`{"ok":true}`)})

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event: ") {
			if got := strings.TrimPrefix(line, "event: "); got != "bounds.changed" {
				t.Fatalf("event = %q; want bounds.changed", got)
			}
			if !sc.Scan() || !strings.Contains(sc.Text(), `"feed":"c1"`) {
				t.Fatalf("data line = %q; want feed c1", sc.Text())
			}
			return
		}
	}
	t.Fatalf("stream ended before event: %v", sc.Err())
}
