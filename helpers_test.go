package kprod

import (
	"encoding/binary"
	"hash/crc32"
	"sync"
	"testing"
	"time"
)

// fakeClient is an in-memory Client. Every SendProduceRequest call is
// recorded and, when sent is non-nil, also published on it so tests can
// synchronize with the dispatcher. respond, when set, scripts the replies.
type fakeClient struct {
	mu sync.Mutex

	calls   [][]ProduceRequest
	sent    chan []ProduceRequest
	respond func(reqs []ProduceRequest) ([]ProduceResponse, error)

	partitions map[string][]int32
	hasMeta    map[string]bool
	metaLoads  int

	reinits int
	copies  int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		sent:       make(chan []ProduceRequest, 128),
		partitions: make(map[string][]int32),
		hasMeta:    make(map[string]bool),
	}
}

func (c *fakeClient) Reinit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reinits++
}

func (c *fakeClient) Copy() Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copies++
	return c
}

func (c *fakeClient) SendProduceRequest(reqs []ProduceRequest, acks RequiredAcks, timeout time.Duration, failOnError bool) ([]ProduceResponse, error) {
	c.mu.Lock()
	c.calls = append(c.calls, reqs)
	respond := c.respond
	sent := c.sent
	c.mu.Unlock()

	if sent != nil {
		sent <- reqs
	}
	if respond != nil {
		return respond(reqs)
	}

	resps := make([]ProduceResponse, len(reqs))
	for i, req := range reqs {
		resps[i] = ProduceResponse{Topic: req.Topic, Partition: req.Partition}
	}
	return resps, nil
}

func (c *fakeClient) LoadMetadataForTopics(topics ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metaLoads++
	for _, topic := range topics {
		c.hasMeta[topic] = true
	}
	return nil
}

func (c *fakeClient) HasMetadataForTopic(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMeta[topic]
}

func (c *fakeClient) PartitionIDsForTopic(topic string) []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partitions[topic]
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *fakeClient) metaLoadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metaLoads
}

// awaitReqs fails the test if no produce request call arrives in time.
func awaitReqs(t *testing.T, c *fakeClient, timeout time.Duration) []ProduceRequest {
	t.Helper()
	select {
	case reqs := <-c.sent:
		return reqs
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a produce request")
		return nil
	}
}

// expectNoReqs fails the test if any produce request call arrives within dur.
func expectNoReqs(t *testing.T, c *fakeClient, dur time.Duration) {
	t.Helper()
	select {
	case reqs := <-c.sent:
		t.Fatalf("unexpected produce request call with %d requests", len(reqs))
	case <-time.After(dur):
	}
}

// decodeMessageSet walks a v0 message set, unwrapping one level of
// compression, and returns the messages in order.
func decodeMessageSet(t *testing.T, set []byte) []Message {
	t.Helper()

	var msgs []Message
	for len(set) > 0 {
		if len(set) < 12 {
			t.Fatalf("truncated message set entry: %d bytes left", len(set))
		}
		size := int(binary.BigEndian.Uint32(set[8:]))
		entry := set[12 : 12+size]
		set = set[12+size:]

		crc := binary.BigEndian.Uint32(entry)
		if got := crc32.ChecksumIEEE(entry[4:]); got != crc {
			t.Fatalf("crc mismatch: got %x, exp %x", got, crc)
		}
		if magic := entry[4]; magic != 0 {
			t.Fatalf("unexpected magic %d", magic)
		}
		attrs := int8(entry[5])
		key, rest := decodeNullableBytes(t, entry[6:])
		value, rest := decodeNullableBytes(t, rest)
		if len(rest) != 0 {
			t.Fatalf("%d trailing bytes in message", len(rest))
		}

		if attrs != 0 {
			inner, err := decompress(value, attrs)
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			msgs = append(msgs, decodeMessageSet(t, inner)...)
			continue
		}
		msgs = append(msgs, Message{Key: key, Value: value})
	}
	return msgs
}

func decodeNullableBytes(t *testing.T, b []byte) ([]byte, []byte) {
	t.Helper()
	if len(b) < 4 {
		t.Fatalf("truncated length prefix: %d bytes left", len(b))
	}
	l := int32(binary.BigEndian.Uint32(b))
	if l == -1 {
		return nil, b[4:]
	}
	return b[4 : 4+l], b[4+l:]
}
