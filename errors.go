package kprod

import (
	"errors"
	"fmt"

	"github.com/kprod-go/kprod/kerr"
)

var (
	// ErrProducerStopped is returned when sending on a producer that has
	// been stopped.
	ErrProducerStopped = errors.New("producer is stopped")

	// ErrEmptyTopic is returned when sending with an empty topic.
	ErrEmptyTopic = errors.New("topic is empty")

	// ErrNilPayload is returned when sending a nil payload.
	ErrNilPayload = errors.New("payload is nil")

	// ErrNoPartitions is returned from a keyed send when metadata for the
	// topic has no partitions to route to.
	ErrNoPartitions = errors.New("topic has no partitions")

	// ErrConnDead is a temporary error a client returns when any read or
	// write to a broker connection errors.
	ErrConnDead = errors.New("connection is dead")

	// ErrBrokerUnavailable is returned by a client when no broker can
	// currently serve a request.
	ErrBrokerUnavailable = errors.New("no broker available to serve the request")
)

// ErrUnsupportedCodec is returned from NewProducer when configured with a
// compression codec this package does not know.
type ErrUnsupportedCodec struct {
	Codec int8
}

func (e *ErrUnsupportedCodec) Error() string {
	return fmt.Sprintf("codec %d unsupported", e.Codec)
}

// ErrQueueFull is returned from an asynchronous send when the shared queue
// cannot accept a payload within the configured put timeout.
//
// Unsent carries the exact suffix of the payloads that were not enqueued;
// everything before Unsent was enqueued successfully and may still be
// delivered.
type ErrQueueFull struct {
	Unsent   [][]byte
	QueueLen int
}

func (e *ErrQueueFull) Error() string {
	return fmt.Sprintf("producer queue overfilled; %d payloads unsent, current queue size %d",
		len(e.Unsent), e.QueueLen)
}

// ErrFailedRequests is the transport-level failure a client reports for
// requests that could not be delivered to a broker at all. All covered
// requests are retriable.
type ErrFailedRequests struct {
	Count int
	Err   error
}

func (e *ErrFailedRequests) Error() string {
	return fmt.Sprintf("%d produce requests failed in transit: %v", e.Count, e.Err)
}

func (e *ErrFailedRequests) Unwrap() error { return e.Err }

// classification is the decision for one failed request: whether to retry it,
// and whether the cycle it failed in must back off or refresh metadata before
// the next attempt.
type classification struct {
	retriable bool
	backoff   bool
	refresh   bool
}

// classify maps a send failure to its classification. Failures that are
// neither retriable nor timeouts are fatal for the request: the dispatcher
// drops it.
//
// Timeouts are only retriable when configured so.
func classify(err error, retryOnTimeouts bool) classification {
	var c classification

	switch {
	case errors.Is(err, kerr.RequestTimedOut):
		c.retriable = retryOnTimeouts
		return c

	case errors.Is(err, ErrConnDead), errors.Is(err, ErrBrokerUnavailable):
		// Transport failures: the broker may have moved, so retry
		// after a backoff and a metadata refresh.
		c.retriable = true
		c.backoff = true
		c.refresh = true
		return c
	}

	var failed *ErrFailedRequests
	if errors.As(err, &failed) {
		c.retriable = true
		c.backoff = true
		c.refresh = true
		return c
	}

	if kerr.IsRetriable(err) {
		c.retriable = true
		switch {
		case errors.Is(err, kerr.LeaderNotAvailable):
			c.backoff = true
			c.refresh = true
		case errors.Is(err, kerr.NotLeaderForPartition),
			errors.Is(err, kerr.UnknownTopicOrPartition):
			c.refresh = true
		}
	}
	return c
}
