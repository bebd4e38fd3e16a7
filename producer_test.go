package kprod

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSyncSendSingleRequest(t *testing.T) {
	t.Parallel()
	cl := newFakeClient()
	p, err := NewProducer(cl, WithRequiredAcks(RequireLeaderAck()))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}

	resps, err := p.SendMessages("t", 0, []byte("hello"))
	if err != nil {
		t.Fatalf("SendMessages: %v", err)
	}
	if len(resps) != 1 {
		t.Fatalf("got %d responses, exp 1", len(resps))
	}

	if got := cl.callCount(); got != 1 {
		t.Fatalf("client calls: got %d, exp 1", got)
	}
	reqs := cl.calls[0]
	if len(reqs) != 1 || reqs[0].Topic != "t" || reqs[0].Partition != 0 {
		t.Fatalf("unexpected request: %+v", reqs)
	}
	msgs := decodeMessageSet(t, reqs[0].MessageSet)
	exp := []Message{{Value: []byte("hello")}}
	if diff := cmp.Diff(exp, msgs); diff != "" {
		t.Errorf("messages differ (-exp +got):\n%s", diff)
	}
}

func TestSyncSendErrorsUnchanged(t *testing.T) {
	t.Parallel()
	cl := newFakeClient()
	sendErr := errors.New("broker exploded")
	cl.respond = func([]ProduceRequest) ([]ProduceResponse, error) {
		return nil, sendErr
	}

	p, err := NewProducer(cl)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	if _, err := p.SendMessages("t", 0, []byte("x")); err != sendErr {
		t.Fatalf("got %v, exp the client's error unchanged", err)
	}
}

func TestSendValidation(t *testing.T) {
	t.Parallel()
	cl := newFakeClient()
	p, err := NewProducer(cl)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}

	if _, err := p.SendMessages("", 0, []byte("x")); err != ErrEmptyTopic {
		t.Errorf("empty topic: got %v, exp ErrEmptyTopic", err)
	}
	if _, err := p.SendMessages("t", 0, []byte("x"), nil); err != ErrNilPayload {
		t.Errorf("nil payload: got %v, exp ErrNilPayload", err)
	}
	// Validation happens before any side effect.
	if got := cl.callCount(); got != 0 {
		t.Errorf("client calls after validation failures: got %d, exp 0", got)
	}
}

func TestAsyncSendReturnsImmediately(t *testing.T) {
	t.Parallel()
	cl := newFakeClient()
	p, err := NewProducer(cl, WithBatching(100, time.Hour))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Stop(time.Second)

	start := time.Now()
	resps, err := p.SendMessages("t", 0, []byte("a"), []byte("b"))
	if err != nil {
		t.Fatalf("SendMessages: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("async send took %v", elapsed)
	}
	if len(resps) != 0 || resps == nil {
		t.Errorf("async send responses: got %v, exp empty non-nil", resps)
	}
}

func TestAsyncQueueFull(t *testing.T) {
	t.Parallel()
	cl := newFakeClient()
	unblock := make(chan struct{})
	cl.respond = func(reqs []ProduceRequest) ([]ProduceResponse, error) {
		<-unblock
		resps := make([]ProduceResponse, len(reqs))
		for i, req := range reqs {
			resps[i] = ProduceResponse{Topic: req.Topic, Partition: req.Partition}
		}
		return resps, nil
	}
	defer close(unblock)

	p, err := NewProducer(cl, Async(), WithMaxQueuedPayloads(1))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Stop(100 * time.Millisecond)

	// The dispatcher pulls the first payload and wedges inside the send,
	// so the next payload sits in the queue and fills it.
	if _, err := p.SendMessages("t", 0, []byte("p0")); err != nil {
		t.Fatalf("SendMessages p0: %v", err)
	}
	awaitReqs(t, cl, time.Second)
	if _, err := p.SendMessages("t", 0, []byte("p1")); err != nil {
		t.Fatalf("SendMessages p1: %v", err)
	}

	// Scenario: two payloads for one remaining slot. The error carries
	// exactly the unsent suffix.
	p2, p3 := []byte("p2"), []byte("p3")
	_, err = p.SendMessages("t", 0, p2, p3)
	var full *ErrQueueFull
	if !errors.As(err, &full) {
		t.Fatalf("got %v, exp *ErrQueueFull", err)
	}
	if diff := cmp.Diff([][]byte{p2, p3}, full.Unsent); diff != "" {
		t.Errorf("unsent suffix differs (-exp +got):\n%s", diff)
	}
	if full.QueueLen != 1 {
		t.Errorf("queue length: got %d, exp 1", full.QueueLen)
	}
}

func TestStopIdempotent(t *testing.T) {
	t.Parallel()
	cl := newFakeClient()
	p, err := NewProducer(cl, WithBatching(10, 20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}

	done := make(chan struct{})
	go func() {
		p.Stop(time.Second)
		p.Stop(time.Second) // no-op
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return in time")
	}

	select {
	case <-p.disp.done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher still running after Stop")
	}
	if got := atomic.LoadInt32(&p.state); got != stateStopped {
		t.Errorf("state after Stop: got %d, exp stopped", got)
	}
}

func TestSendAfterStop(t *testing.T) {
	t.Parallel()
	cl := newFakeClient()
	p, err := NewProducer(cl, WithBatching(10, 20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	p.Stop(time.Second)

	if _, err := p.SendMessages("t", 0, []byte("late")); err != ErrProducerStopped {
		t.Errorf("send after stop: got %v, exp ErrProducerStopped", err)
	}
}

func TestStopForcesWedgedDispatcher(t *testing.T) {
	t.Parallel()
	cl := newFakeClient()
	wedged := make(chan struct{})
	cl.respond = func([]ProduceRequest) ([]ProduceResponse, error) {
		<-wedged
		return nil, nil
	}
	defer close(wedged)

	p, err := NewProducer(cl, Async())
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	if _, err := p.SendMessages("t", 0, []byte("x")); err != nil {
		t.Fatalf("SendMessages: %v", err)
	}
	awaitReqs(t, cl, time.Second)

	// The dispatcher is stuck inside the client send; Stop must still
	// return once its timeout passes.
	start := time.Now()
	p.Stop(50 * time.Millisecond)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("forced Stop took %v", elapsed)
	}
}
