package kprod

import (
	"fmt"
	"time"
)

// Defaults mirror the long-standing producer defaults: leader acks, a one
// second ack timeout, no compression, no retries, an unbounded queue, and
// 20 message / 20 second batch triggers when batching is enabled.
const (
	defaultAckTimeout = time.Second
	defaultBatchSize  = 20
	defaultBatchTime  = 20 * time.Second

	// Without batching, the dispatcher still runs in asynchronous mode; it
	// just flushes every payload on arrival.
	unbatchedSize = 1
	unbatchedTime = time.Hour
)

// Opt is an option to configure a producer.
type Opt interface {
	apply(*cfg)
}

type producerOpt struct{ fn func(*cfg) }

func (opt producerOpt) apply(cfg *cfg) { opt.fn(cfg) }

type cfg struct {
	logger Logger

	async bool
	acks  RequiredAcks

	ackTimeout time.Duration
	codec      CompressionCodec

	batching  bool
	batchSize int
	batchTime time.Duration

	retryLimit      int
	retryBackoff    time.Duration
	retryOnTimeouts bool

	queueMaxLen     int
	queuePutTimeout time.Duration

	partitioner PartitionerFactory
}

func defaultCfg() cfg {
	return cfg{
		acks:        RequireLeaderAck(),
		ackTimeout:  defaultAckTimeout,
		codec:       NoCompression(),
		batchSize:   defaultBatchSize,
		batchTime:   defaultBatchTime,
		partitioner: NewHashedPartitioner,
	}
}

func (cfg *cfg) validate() error {
	if cfg.batching {
		cfg.async = true
		if cfg.batchSize <= 0 {
			return fmt.Errorf("batch size %d is not positive", cfg.batchSize)
		}
		if cfg.batchTime <= 0 {
			return fmt.Errorf("batch time %v is not positive", cfg.batchTime)
		}
	} else {
		cfg.batchSize = unbatchedSize
		cfg.batchTime = unbatchedTime
	}
	if cfg.queueMaxLen < 0 {
		return fmt.Errorf("queue max length %d is negative", cfg.queueMaxLen)
	}
	if cfg.retryLimit < 0 {
		return fmt.Errorf("retry limit %d is negative", cfg.retryLimit)
	}
	if cfg.retryBackoff < 0 {
		return fmt.Errorf("retry backoff %v is negative", cfg.retryBackoff)
	}
	return nil
}

// RequiredAcks represents the number of acks a broker leader must have before
// a produce request is considered complete.
//
// This controls the durability of written payloads. The default is
// RequireLeaderAck.
type RequiredAcks struct {
	val int16
}

// RequireNoAck considers payloads sent as soon as they are written on the
// wire. The leader does not reply.
func RequireNoAck() RequiredAcks { return RequiredAcks{0} }

// RequireLeaderAck causes the broker to reply once the leader has written a
// payload, without waiting for in-sync replicas.
func RequireLeaderAck() RequiredAcks { return RequiredAcks{1} }

// RequireAllISRAcks ensures that all in-sync replicas have acknowledged a
// payload before the leader replies.
func RequireAllISRAcks() RequiredAcks { return RequiredAcks{-1} }

// WithLogger sets the logger to use throughout the producer, overriding the
// default of dropping all log messages.
func WithLogger(l Logger) Opt {
	return producerOpt{func(cfg *cfg) { cfg.logger = l }}
}

// Async puts the producer in asynchronous mode: sends enqueue onto the
// shared queue and return immediately, and the background dispatcher owns
// delivery. Asynchronous delivery is best effort.
func Async() Opt {
	return producerOpt{func(cfg *cfg) { cfg.async = true }}
}

// WithRequiredAcks sets the required acks for produce requests, overriding
// the default RequireLeaderAck.
func WithRequiredAcks(acks RequiredAcks) Opt {
	return producerOpt{func(cfg *cfg) { cfg.acks = acks }}
}

// WithAckTimeout sets how long the broker may take to acknowledge a produce
// request, overriding the default one second.
func WithAckTimeout(timeout time.Duration) Opt {
	return producerOpt{func(cfg *cfg) { cfg.ackTimeout = timeout }}
}

// WithCompression sets the compression codec for message sets, overriding
// the default of no compression. An unknown codec fails NewProducer.
func WithCompression(codec CompressionCodec) Opt {
	return producerOpt{func(cfg *cfg) { cfg.codec = codec }}
}

// WithBatching buffers payloads and flushes them once size have accumulated
// or window has elapsed since the flush cycle began, whichever comes first.
// Batching implies asynchronous mode.
func WithBatching(size int, window time.Duration) Opt {
	return producerOpt{func(cfg *cfg) {
		cfg.batching = true
		cfg.batchSize = size
		cfg.batchTime = window
	}}
}

// WithRetries sets how many times the dispatcher resends a retriable failed
// request before dropping it, overriding the default of no retries.
func WithRetries(n int) Opt {
	return producerOpt{func(cfg *cfg) { cfg.retryLimit = n }}
}

// WithRetryBackoff sets how long the dispatcher sleeps before resending when
// a failure calls for backing off, overriding the default of no sleep.
func WithRetryBackoff(backoff time.Duration) Opt {
	return producerOpt{func(cfg *cfg) { cfg.retryBackoff = backoff }}
}

// WithRetryOnTimeouts makes broker request timeouts retriable. By default a
// timed out request is dropped.
func WithRetryOnTimeouts() Opt {
	return producerOpt{func(cfg *cfg) { cfg.retryOnTimeouts = true }}
}

// WithMaxQueuedPayloads bounds the shared queue, overriding the unbounded
// default. Sends that find the queue full fail with ErrQueueFull after the
// configured put timeout.
func WithMaxQueuedPayloads(n int) Opt {
	return producerOpt{func(cfg *cfg) { cfg.queueMaxLen = n }}
}

// WithQueuePutTimeout sets how long an asynchronous send waits for queue
// space before failing, overriding the default of failing immediately.
func WithQueuePutTimeout(timeout time.Duration) Opt {
	return producerOpt{func(cfg *cfg) { cfg.queuePutTimeout = timeout }}
}

// WithPartitioner sets the partitioner factory a KeyedProducer builds
// per-topic partitioners with, overriding the default NewHashedPartitioner.
func WithPartitioner(factory PartitionerFactory) Opt {
	return producerOpt{func(cfg *cfg) { cfg.partitioner = factory }}
}
