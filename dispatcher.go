package kprod

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kprod-go/kprod/kerr"
)

// pendingReq is one encoded message set awaiting a send or a resend. tries
// counts failed sends; it never exceeds the configured retry limit.
type pendingReq struct {
	tp    TopicPartition
	set   []byte
	tries int
}

// dispatcher is the single background goroutine of an asynchronous producer.
// It drains the shared queue, assembles per-partition batches, sends them,
// and applies the retry, backoff, and metadata-refresh policy on failure.
//
// The dispatcher's client handle is a private copy; nothing else touches it.
type dispatcher struct {
	cl    Client
	queue *ring[queueItem]
	compr *compressor
	cfg   cfg
	log   *wrappedLogger

	stopped   uint32
	quit      chan struct{} // closed on forced stop, interrupts backoff
	done      chan struct{} // closed when run exits
	forceOnce sync.Once
}

func newDispatcher(cl Client, queue *ring[queueItem], compr *compressor, cfg cfg) *dispatcher {
	return &dispatcher{
		cl:    cl,
		queue: queue,
		compr: compr,
		cfg:   cfg,
		log:   &wrappedLogger{cfg.logger},
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (d *dispatcher) stopping() bool { return atomic.LoadUint32(&d.stopped) == 1 }

// forceStop makes the dispatcher exit without finishing its cycle: the queue
// dies so a blocked gather returns, and any backoff sleep is cut short.
func (d *dispatcher) forceStop() {
	d.forceOnce.Do(func() {
		atomic.StoreUint32(&d.stopped, 1)
		close(d.quit)
		d.queue.die()
	})
}

func (d *dispatcher) run() {
	defer close(d.done)
	d.cl.Reinit()

	var pending []*pendingReq
	for !d.stopping() {
		pending = d.gather(pending)
		if len(pending) == 0 {
			continue
		}
		pending = d.sendPending(pending)
	}

	if n := len(pending); n > 0 {
		d.log.Log(LogLevelWarn, "dispatcher stopping with undelivered requests", "requests", n)
	}
	d.log.Log(LogLevelDebug, "dispatcher exited")
}

// gather pulls queue items until the batch size is reached (counting
// requests already pending from failed cycles), the batch window elapses, or
// the queue stays empty past the window. Items are grouped per partition in
// arrival order and encoded onto pending.
//
// A stop sentinel ends gathering immediately; what was already pulled is
// still encoded so the final cycle can send it, but everything still queued
// behind the sentinel is abandoned.
func (d *dispatcher) gather(pending []*pendingReq) []*pendingReq {
	capacity := d.cfg.batchSize - len(pending)
	deadline := time.Now().Add(d.cfg.batchTime)

	byTP := make(map[TopicPartition][]Message)
	var order []TopicPartition

	for capacity > 0 {
		remain := time.Until(deadline)
		if remain <= 0 {
			break
		}
		item, ok := d.queue.pop(remain)
		if !ok {
			break
		}
		if item.stop {
			atomic.StoreUint32(&d.stopped, 1)
			break
		}
		if _, exists := byTP[item.tp]; !exists {
			order = append(order, item.tp)
		}
		byTP[item.tp] = append(byTP[item.tp], Message{Key: item.key, Value: item.payload})
		capacity--
	}

	for _, tp := range order {
		set, err := createMessageSet(byTP[tp], d.compr)
		if err != nil {
			d.log.Log(LogLevelError, "dropping batch that failed to encode",
				"topic", tp.Topic, "partition", tp.Partition, "messages", len(byTP[tp]), "err", err)
			continue
		}
		pending = append(pending, &pendingReq{tp: tp, set: set})
	}
	return pending
}

// sendPending sends every pending request as one multi-request call and
// applies the failure policy: retriable failures are kept for the next cycle
// until their retry limit, backoff and refresh apply at most once per cycle,
// and everything else is dropped.
func (d *dispatcher) sendPending(pending []*pendingReq) []*pendingReq {
	reqs := make([]ProduceRequest, len(pending))
	for i, pr := range pending {
		reqs[i] = ProduceRequest{Topic: pr.tp.Topic, Partition: pr.tp.Partition, MessageSet: pr.set}
	}

	retry := make(map[*pendingReq]bool)
	var doBackoff, doRefresh bool
	handle := func(err error, prs []*pendingReq) {
		c := classify(err, d.cfg.retryOnTimeouts)
		if c.retriable {
			for _, pr := range prs {
				retry[pr] = true
			}
		}
		doBackoff = doBackoff || c.backoff
		doRefresh = doRefresh || c.refresh
	}

	resps, err := d.cl.SendProduceRequest(reqs, d.cfg.acks, d.cfg.ackTimeout, false)
	if err != nil {
		d.log.Log(LogLevelWarn, "produce request failed", "requests", len(reqs), "err", err)
		handle(err, pending)
	} else {
		for i, resp := range resps {
			if i >= len(pending) {
				break
			}
			switch {
			case resp.Err != nil:
				handle(resp.Err, pending[i:i+1])
			case resp.ErrorCode != 0:
				handle(kerr.Code(resp.ErrorCode), pending[i:i+1])
			}
		}
	}

	if len(retry) == 0 {
		return nil
	}

	if doBackoff && d.cfg.retryBackoff > 0 {
		d.log.Log(LogLevelInfo, "backing off before retrying", "backoff", d.cfg.retryBackoff)
		select {
		case <-time.After(d.cfg.retryBackoff):
		case <-d.quit:
			return nil
		}
	}
	if doRefresh {
		if err := d.cl.LoadMetadataForTopics(); err != nil {
			d.log.Log(LogLevelWarn, "metadata refresh failed", "err", err)
		}
	}

	keep := pending[:0]
	for _, pr := range pending {
		if !retry[pr] {
			d.log.Log(LogLevelDebug, "request not retried: succeeded or failed non-retriably",
				"topic", pr.tp.Topic, "partition", pr.tp.Partition)
			continue
		}
		if pr.tries >= d.cfg.retryLimit {
			d.log.Log(LogLevelWarn, "dropping request past its retry limit",
				"topic", pr.tp.Topic, "partition", pr.tp.Partition, "tries", pr.tries)
			continue
		}
		pr.tries++
		keep = append(keep, pr)
	}
	return keep
}
