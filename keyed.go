package kprod

import "sync"

// KeyedProducer routes payloads to partitions by key. Each topic gets a
// lazily-built partitioner over the topic's current partition list; the
// resolved partition and the key are then handed to the wrapped Producer.
type KeyedProducer struct {
	*Producer

	mu           sync.Mutex
	partitioners map[string]Partitioner
}

// NewKeyedProducer returns a keyed producer sending through cl. The
// partitioner factory defaults to NewHashedPartitioner and is overridden
// with WithPartitioner.
func NewKeyedProducer(cl Client, opts ...Opt) (*KeyedProducer, error) {
	p, err := NewProducer(cl, opts...)
	if err != nil {
		return nil, err
	}
	return &KeyedProducer{
		Producer:     p,
		partitioners: make(map[string]Partitioner),
	}, nil
}

// partitionFor resolves the partition for key in topic, building the topic's
// partitioner on first use. If the client has no cached metadata for the
// topic, a metadata load is triggered first.
func (kp *KeyedProducer) partitionFor(topic string, key []byte) (int32, error) {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	partitioner, exists := kp.partitioners[topic]
	if !exists {
		if !kp.cl.HasMetadataForTopic(topic) {
			if err := kp.cl.LoadMetadataForTopics(topic); err != nil {
				return 0, err
			}
		}
		partitions := kp.cl.PartitionIDsForTopic(topic)
		if len(partitions) == 0 {
			return 0, ErrNoPartitions
		}
		partitioner = kp.cfg.partitioner(partitions)
		kp.partitioners[topic] = partitioner
	}
	return partitioner.Partition(key), nil
}

// Send sends one keyed payload to topic.
func (kp *KeyedProducer) Send(topic string, key, payload []byte) ([]ProduceResponse, error) {
	return kp.SendKeyedMessages(topic, key, payload)
}

// SendKeyedMessages sends payloads to the partition key hashes to, attaching
// key to every message. Delivery semantics per mode are those of
// Producer.SendMessages.
func (kp *KeyedProducer) SendKeyedMessages(topic string, key []byte, payloads ...[]byte) ([]ProduceResponse, error) {
	partition, err := kp.partitionFor(topic, key)
	if err != nil {
		return nil, err
	}
	return kp.sendMessages(topic, partition, key, payloads)
}
