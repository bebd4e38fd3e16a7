package kprod

import "time"

// TopicPartition names one partition of one topic. It is the batching and
// grouping key for everything in this package.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// ProduceRequest is one encoded message set bound for one topic partition.
type ProduceRequest struct {
	Topic      string
	Partition  int32
	MessageSet []byte
}

// ProduceResponse is the broker's reply for one ProduceRequest.
//
// When a request is sent with failOnError false, a transport failure for a
// request is reported in Err rather than by failing the whole call; a broker
// rejection is reported in ErrorCode. Responses are index-aligned with the
// requests of the call that produced them.
type ProduceResponse struct {
	Topic     string
	Partition int32
	Offset    int64
	ErrorCode int16
	Err       error
}

// Client is the broker client collaborator this package produces through.
//
// Implementations own connection management, metadata caching, and the wire
// protocol; this package only batches, sends, and retries.
type Client interface {
	// Reinit reestablishes the client's connections. The dispatcher calls
	// this once on its private copy before its first send.
	Reinit()

	// Copy returns an independent handle over the same cluster. The
	// dispatcher takes a copy at construction so its network use never
	// races the caller-facing handle.
	Copy() Client

	// SendProduceRequest sends all reqs as one multi-request call.
	//
	// With failOnError true, any failure fails the whole call. With
	// failOnError false, per-request failures are reported inside the
	// index-aligned responses and the returned error is reserved for
	// failures covering every request.
	SendProduceRequest(reqs []ProduceRequest, acks RequiredAcks, timeout time.Duration, failOnError bool) ([]ProduceResponse, error)

	// LoadMetadataForTopics refreshes partition metadata, for all known
	// topics if none are given.
	LoadMetadataForTopics(topics ...string) error

	// HasMetadataForTopic returns whether the client has cached partition
	// metadata for a topic.
	HasMetadataForTopic(topic string) bool

	// PartitionIDsForTopic returns the ordered partition ids for a topic
	// from the client's cached metadata.
	PartitionIDsForTopic(topic string) []int32
}

// queueItem is what callers place on the shared queue: one payload bound for
// one topic partition. A nil-everything item with stop set is the sentinel
// instructing the dispatcher to terminate.
type queueItem struct {
	tp      TopicPartition
	payload []byte
	key     []byte
	stop    bool
}
