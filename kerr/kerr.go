// Package kerr contains broker-side produce errors.
//
// The errors are undocumented to avoid duplicating the official descriptions
// that can be found at http://kafka.apache.org/protocol.html#protocol_error_codes.
//
// Since this package is dedicated to errors and the package is named "kerr",
// all errors elide the standard "Err" prefix.
package kerr

import "errors"

// Error is a broker error.
type Error struct {
	// Message is the string form of a broker error code
	// (UNKNOWN_SERVER_ERROR, etc).
	Message string
	// Code is the broker error code.
	Code int16
	// Retriable is whether the error is considered retriable by the
	// broker protocol.
	Retriable bool
}

func (e *Error) Error() string {
	return e.Message
}

// Code returns the error corresponding to the given error code.
//
// If the code is unknown, this returns UnknownServerError.
// If the code is 0, this returns nil.
func Code(code int16) error {
	err, exists := code2err[code]
	if !exists {
		return UnknownServerError
	}
	return err
}

// IsRetriable returns whether a broker error is retriable.
func IsRetriable(err error) bool {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Retriable
	}
	return false
}

var (
	UnknownServerError          = &Error{"UNKNOWN_SERVER_ERROR", -1, false}
	OffsetOutOfRange            = &Error{"OFFSET_OUT_OF_RANGE", 1, false}
	CorruptMessage              = &Error{"CORRUPT_MESSAGE", 2, true}
	UnknownTopicOrPartition     = &Error{"UNKNOWN_TOPIC_OR_PARTITION", 3, true}
	InvalidFetchSize            = &Error{"INVALID_FETCH_SIZE", 4, false}
	LeaderNotAvailable          = &Error{"LEADER_NOT_AVAILABLE", 5, true}
	NotLeaderForPartition       = &Error{"NOT_LEADER_FOR_PARTITION", 6, true}
	RequestTimedOut             = &Error{"REQUEST_TIMED_OUT", 7, true}
	BrokerNotAvailable          = &Error{"BROKER_NOT_AVAILABLE", 8, false}
	ReplicaNotAvailable         = &Error{"REPLICA_NOT_AVAILABLE", 9, false}
	MessageTooLarge             = &Error{"MESSAGE_TOO_LARGE", 10, false}
	StaleControllerEpoch        = &Error{"STALE_CONTROLLER_EPOCH", 11, false}
	NetworkException            = &Error{"NETWORK_EXCEPTION", 13, true}
	InvalidTopicException       = &Error{"INVALID_TOPIC_EXCEPTION", 17, false}
	RecordListTooLarge          = &Error{"RECORD_LIST_TOO_LARGE", 18, false}
	NotEnoughReplicas           = &Error{"NOT_ENOUGH_REPLICAS", 19, true}
	NotEnoughReplicasAfterAppnd = &Error{"NOT_ENOUGH_REPLICAS_AFTER_APPEND", 20, true}
	InvalidRequiredAcks         = &Error{"INVALID_REQUIRED_ACKS", 21, false}
	TopicAuthorizationFailed    = &Error{"TOPIC_AUTHORIZATION_FAILED", 29, false}
	ClusterAuthorizationFailed  = &Error{"CLUSTER_AUTHORIZATION_FAILED", 31, false}
	InvalidTimestamp            = &Error{"INVALID_TIMESTAMP", 32, false}
	UnsupportedVersion          = &Error{"UNSUPPORTED_VERSION", 35, false}
	TopicAlreadyExists          = &Error{"TOPIC_ALREADY_EXISTS", 36, false}
	InvalidPartitions           = &Error{"INVALID_PARTITIONS", 37, false}
	InvalidRequest              = &Error{"INVALID_REQUEST", 42, false}
	UnsupportedForMessageFormat = &Error{"UNSUPPORTED_FOR_MESSAGE_FORMAT", 43, false}
	PolicyViolation             = &Error{"POLICY_VIOLATION", 44, false}
	KafkaStorageError           = &Error{"KAFKA_STORAGE_ERROR", 56, true}
	UnsupportedCompressionType  = &Error{"UNSUPPORTED_COMPRESSION_TYPE", 76, false}
)

var code2err = map[int16]error{
	-1: UnknownServerError,
	0:  nil,
	1:  OffsetOutOfRange,
	2:  CorruptMessage,
	3:  UnknownTopicOrPartition,
	4:  InvalidFetchSize,
	5:  LeaderNotAvailable,
	6:  NotLeaderForPartition,
	7:  RequestTimedOut,
	8:  BrokerNotAvailable,
	9:  ReplicaNotAvailable,
	10: MessageTooLarge,
	11: StaleControllerEpoch,
	13: NetworkException,
	17: InvalidTopicException,
	18: RecordListTooLarge,
	19: NotEnoughReplicas,
	20: NotEnoughReplicasAfterAppnd,
	21: InvalidRequiredAcks,
	29: TopicAuthorizationFailed,
	31: ClusterAuthorizationFailed,
	32: InvalidTimestamp,
	35: UnsupportedVersion,
	36: TopicAlreadyExists,
	37: InvalidPartitions,
	42: InvalidRequest,
	43: UnsupportedForMessageFormat,
	44: PolicyViolation,
	56: KafkaStorageError,
	76: UnsupportedCompressionType,
}
