// Package kprod is an asynchronous batching producer for a Kafka-style
// message broker, layered over a pluggable broker Client.
//
// A Producer either sends synchronously, one request per call, or buffers
// payloads on a shared bounded queue drained by a single background
// dispatcher. The dispatcher assembles per-partition batches, flushing when
// a configured count accumulates or a configured window elapses, and applies
// a retry, backoff, and metadata-refresh policy to failed requests. The
// asynchronous path is best effort: it gives no delivery guarantee, and no
// ordering is defined across different topic partitions.
//
// KeyedProducer adds key-based routing: a per-topic partitioner, built
// lazily from the broker's current partition list, resolves each key to a
// partition before the payload enters the normal send path.
package kprod
