package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu     sync.Mutex
	events chan interface{}
	fail   bool
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan interface{}, 8)}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.events <- v
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func waitEvent(t *testing.T, c *fakeConn) Event {
	t.Helper()
	select {
	case v := <-c.events:
		return v.(Event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHubRoutesToUserAndAdmins(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	student := &Client{UserID: uuid.New(), Conn: newFakeConn()}
	admin := &Client{UserID: uuid.New(), Admin: true, Conn: newFakeConn()}
	other := &Client{UserID: uuid.New(), Conn: newFakeConn()}
	h.Register(student)
	h.Register(admin)
	h.Register(other)

	threadID := uuid.New()
	h.Publish(Delivery{UserID: student.UserID, Event: Event{Type: "thread.entry", ThreadID: threadID}})
	if ev := waitEvent(t, student.Conn.(*fakeConn)); ev.ThreadID != threadID {
		t.Errorf("unexpected thread id %s", ev.ThreadID)
	}

	h.Publish(Delivery{ToAdmins: true, Event: Event{Type: "thread.created", ThreadID: threadID}})
	if ev := waitEvent(t, admin.Conn.(*fakeConn)); ev.Type != "thread.created" {
		t.Errorf("unexpected event type %s", ev.Type)
	}

	select {
	case <-other.Conn.(*fakeConn).events:
		t.Error("unrelated client received an event")
	default:
	}
}

func TestHubDropsBrokenClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	conn := newFakeConn()
	conn.fail = true
	c := &Client{UserID: uuid.New(), Conn: conn}
	h.Register(c)

	h.deliver(Delivery{UserID: c.UserID, Event: Event{Type: "ping"}})

	if h.Connected(c.UserID) {
		t.Error("broken client should be unregistered")
	}
	if !conn.closed {
		t.Error("broken connection should be closed")
	}
}

func TestUserKeepsEveryConnection(t *testing.T) {
	h := NewHub(zap.NewNop())
	id := uuid.New()
	first := &Client{UserID: id, Admin: true, Conn: newFakeConn()}
	second := &Client{UserID: id, Admin: true, Conn: newFakeConn()}
	h.Register(first)
	h.Register(second)

	h.deliver(Delivery{ToAdmins: true, Event: Event{Type: "thread.created"}})
	for _, c := range []*Client{first, second} {
		conn := c.Conn.(*fakeConn)
		if conn.closed {
			t.Error("a second tab must not close the first")
		}
		if ev := waitEvent(t, conn); ev.Type != "thread.created" {
			t.Errorf("unexpected event type %s", ev.Type)
		}
	}

	h.Unregister(first)
	if !h.Connected(id) {
		t.Error("the other connection should stay registered")
	}
	h.Unregister(second)
	if h.Connected(id) {
		t.Error("user should be gone after the last connection leaves")
	}
}

type overlapConn struct {
	inFlight int32
	overlap  int32
	writes   int32
}

func (c *overlapConn) WriteJSON(interface{}) error {
	if atomic.AddInt32(&c.inFlight, 1) > 1 {
		atomic.StoreInt32(&c.overlap, 1)
	}
	time.Sleep(100 * time.Microsecond)
	atomic.AddInt32(&c.inFlight, -1)
	atomic.AddInt32(&c.writes, 1)
	return nil
}

func (c *overlapConn) Close() error { return nil }

func TestClientWritesNeverOverlap(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	conn := &overlapConn{}
	c := &Client{UserID: uuid.New(), Conn: conn}
	h.Register(c)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			h.Publish(Delivery{UserID: c.UserID, Event: Event{Type: "thread.entry"}})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = c.WriteJSON(Event{Type: "ready"})
		}
	}()
	wg.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt32(&conn.writes) < 2*n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d writes, got %d", 2*n, atomic.LoadInt32(&conn.writes))
		}
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&conn.overlap) != 0 {
		t.Fatal("two writes reached the connection at the same time")
	}
}
