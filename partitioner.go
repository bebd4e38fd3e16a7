package kprod

import (
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// Partitioner selects which of a topic's partitions a keyed message is sent
// to. A partitioner is built from the topic's ordered partition id list and
// is only consulted by the KeyedProducer.
type Partitioner interface {
	// Partition returns the partition id for key.
	Partition(key []byte) int32
}

// PartitionerFactory builds a Partitioner from a topic's ordered partition
// ids. Factories are invoked lazily, once per topic.
type PartitionerFactory func(partitions []int32) Partitioner

type hashedPartitioner struct {
	partitions []int32
}

// NewHashedPartitioner returns the default partitioner: FNV-1a over the key,
// modulo the partition count. The same key against the same partition list
// always yields the same partition.
func NewHashedPartitioner(partitions []int32) Partitioner {
	return &hashedPartitioner{partitions}
}

func (h *hashedPartitioner) Partition(key []byte) int32 {
	hasher := fnv.New32a()
	hasher.Write(key)
	return h.partitions[int(hasher.Sum32())%len(h.partitions)]
}

type roundRobinPartitioner struct {
	mu         sync.Mutex
	partitions []int32
	next       int
}

// NewRoundRobinPartitioner returns a partitioner that cycles through the
// partition list regardless of key. It is not deterministic per key; use it
// for even spread when keys carry no placement meaning.
func NewRoundRobinPartitioner(partitions []int32) Partitioner {
	return &roundRobinPartitioner{partitions: partitions}
}

func (r *roundRobinPartitioner) Partition([]byte) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.partitions[r.next]
	r.next = (r.next + 1) % len(r.partitions)
	return p
}

type randomPartitioner struct {
	partitions []int32
	rngs       sync.Pool
}

// NewRandomPartitioner returns a partitioner that chooses partitions at
// random regardless of key.
func NewRandomPartitioner(partitions []int32) Partitioner {
	return &randomPartitioner{
		partitions: partitions,
		rngs: sync.Pool{
			New: func() interface{} {
				rng := rand.New(new(rand.PCGSource))
				rng.Seed(uint64(time.Now().UnixNano()))
				return rng
			}},
	}
}

func (r *randomPartitioner) Partition([]byte) int32 {
	rng := r.rngs.Get().(*rand.Rand)
	p := r.partitions[rng.Intn(len(r.partitions))]
	r.rngs.Put(rng)
	return p
}
