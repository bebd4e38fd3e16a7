package kprod

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Producer states. Stopped is terminal.
const (
	stateRunning int32 = iota
	stateStopping
	stateStopped
)

// Producer accepts payloads and delivers them to a broker cluster through a
// Client, either synchronously per call or asynchronously through a shared
// queue drained by a single background dispatcher.
//
// Asynchronous delivery is best effort: once a send returns, no delivery
// guarantee is made and post-enqueue failures are handled entirely inside
// the dispatcher.
type Producer struct {
	cfg   cfg
	log   *wrappedLogger
	cl    Client
	compr *compressor

	// Both are nil in synchronous mode.
	queue *ring[queueItem]
	disp  *dispatcher

	state int32
}

// NewProducer returns a producer sending through cl.
//
// In asynchronous mode the dispatcher starts immediately on a private copy
// of cl and runs until Stop. If the producer is garbage collected without an
// explicit Stop, a best-effort stop is attempted; that path gives no
// delivery guarantee, so prefer calling Stop.
func NewProducer(cl Client, opts ...Opt) (*Producer, error) {
	cfg := defaultCfg()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	compr, err := newCompressor(cfg.codec)
	if err != nil {
		return nil, err
	}

	p := &Producer{
		cfg:   cfg,
		log:   &wrappedLogger{cfg.logger},
		cl:    cl,
		compr: compr,
	}

	if cfg.async {
		p.queue = newRing[queueItem](cfg.queueMaxLen)
		p.disp = newDispatcher(cl.Copy(), p.queue, compr, cfg)
		go p.disp.run()
		runtime.SetFinalizer(p, func(p *Producer) { p.Stop(time.Second) })
	}
	return p, nil
}

// SendMessages sends payloads to one partition of one topic with no key.
//
// Synchronous mode encodes all payloads into one request and returns the
// client's responses, or the client's error unchanged. Asynchronous mode
// enqueues one item per payload and returns an empty response slice
// immediately; if the queue fills mid-call, the error is an *ErrQueueFull
// carrying the exact unsent suffix.
func (p *Producer) SendMessages(topic string, partition int32, payloads ...[]byte) ([]ProduceResponse, error) {
	return p.sendMessages(topic, partition, nil, payloads)
}

func (p *Producer) sendMessages(topic string, partition int32, key []byte, payloads [][]byte) ([]ProduceResponse, error) {
	if atomic.LoadInt32(&p.state) != stateRunning {
		return nil, ErrProducerStopped
	}
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	for _, payload := range payloads {
		if payload == nil {
			return nil, ErrNilPayload
		}
	}

	if p.cfg.async {
		tp := TopicPartition{topic, partition}
		for i, payload := range payloads {
			err := p.queue.push(queueItem{tp: tp, payload: payload, key: key}, p.cfg.queuePutTimeout)
			switch err {
			case nil:
			case errRingDead:
				return nil, ErrProducerStopped
			default:
				return nil, &ErrQueueFull{Unsent: payloads[i:], QueueLen: p.queue.len()}
			}
		}
		return []ProduceResponse{}, nil
	}

	msgs := make([]Message, len(payloads))
	for i, payload := range payloads {
		msgs[i] = Message{Key: key, Value: payload}
	}
	set, err := createMessageSet(msgs, p.compr)
	if err != nil {
		return nil, err
	}
	req := ProduceRequest{Topic: topic, Partition: partition, MessageSet: set}
	resps, err := p.cl.SendProduceRequest([]ProduceRequest{req}, p.cfg.acks, p.cfg.ackTimeout, true)
	if err != nil {
		p.log.Log(LogLevelError, "unable to send messages",
			"topic", topic, "partition", partition, "err", err)
		return nil, err
	}
	return resps, nil
}

// Stop stops the producer, waiting up to timeout for the dispatcher to send
// what it has gathered and exit. If the dispatcher does not exit in time it
// is forced to stop and anything still buffered or in flight is lost.
//
// Stop is idempotent; calls after the first are no-ops.
func (p *Producer) Stop(timeout time.Duration) {
	if !atomic.CompareAndSwapInt32(&p.state, stateRunning, stateStopping) {
		return
	}
	defer atomic.StoreInt32(&p.state, stateStopped)
	runtime.SetFinalizer(p, nil)

	if !p.cfg.async {
		return
	}

	deadline := time.Now().Add(timeout)

	// The sentinel competes for queue space like any item; if the queue is
	// wedged full, fall through to a forced stop.
	if err := p.queue.push(queueItem{stop: true}, timeout); err != nil {
		p.log.Log(LogLevelWarn, "unable to enqueue stop signal; forcing dispatcher stop", "err", err)
		p.disp.forceStop()
		return
	}

	select {
	case <-p.disp.done:
	case <-time.After(time.Until(deadline)):
		p.log.Log(LogLevelWarn, "dispatcher did not exit in time; forcing stop, buffered messages may be lost",
			"timeout", timeout)
		p.disp.forceStop()
	}
}
