package wsserver_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coinfabrik/mpc-coordinator/internal/wsserver"
)

func TestOutboxSendRecvOrder(t *testing.T) {
	t.Parallel()

	o := wsserver.NewOutbox()
	for _, msg := range [][]byte{[]byte("a"), []byte("b"), []byte("c")} {
		if err := o.Send(msg); err != nil {
			t.Fatalf("Send(%s): %v", msg, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := o.Recv()
		if !ok {
			t.Fatalf("Recv() ok=false, want a message")
		}
		if string(got) != want {
			t.Errorf("Recv() = %q, want %q", got, want)
		}
	}
}

func TestOutboxRecvBlocksUntilSend(t *testing.T) {
	t.Parallel()

	o := wsserver.NewOutbox()
	received := make(chan []byte, 1)
	go func() {
		msg, ok := o.Recv()
		if !ok {
			return
		}
		received <- msg
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-received:
		t.Fatal("Recv returned before any Send")
	default:
	}

	if err := o.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg) != "hello" {
			t.Errorf("Recv() = %q, want %q", msg, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv never returned after Send")
	}
}

func TestOutboxCloseUnblocksRecv(t *testing.T) {
	t.Parallel()

	o := wsserver.NewOutbox()
	done := make(chan bool, 1)
	go func() {
		_, ok := o.Recv()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	o.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Recv() ok = true after Close with no pending messages, want false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv never unblocked after Close")
	}
}

func TestOutboxDrainsBeforeClosing(t *testing.T) {
	t.Parallel()

	o := wsserver.NewOutbox()
	if err := o.Send([]byte("pending")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	o.Close()

	msg, ok := o.Recv()
	if !ok {
		t.Fatal("Recv() ok=false, want the message sent before Close to still be delivered")
	}
	if string(msg) != "pending" {
		t.Errorf("Recv() = %q, want %q", msg, "pending")
	}

	if _, ok := o.Recv(); ok {
		t.Error("Recv() ok=true after the queue drained post-Close, want false")
	}
}

func TestOutboxSendAfterCloseFails(t *testing.T) {
	t.Parallel()

	o := wsserver.NewOutbox()
	o.Close()

	if err := o.Send([]byte("too late")); !errors.Is(err, wsserver.ErrOutboxClosed) {
		t.Errorf("Send after Close = %v, want %v", err, wsserver.ErrOutboxClosed)
	}
}

func TestOutboxConcurrentSenders(t *testing.T) {
	t.Parallel()

	o := wsserver.NewOutbox()
	const senders = 8
	const perSender = 50

	var wg sync.WaitGroup
	wg.Add(senders)
	for i := 0; i < senders; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				_ = o.Send([]byte{byte(j)})
			}
		}()
	}
	wg.Wait()
	o.Close()

	count := 0
	for {
		_, ok := o.Recv()
		if !ok {
			break
		}
		count++
	}
	if count != senders*perSender {
		t.Errorf("received %d messages, want %d", count, senders*perSender)
	}
}
