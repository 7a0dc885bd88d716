package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"

	// OrderValidationError represents an error when a new order request fails validation.
	OrderValidationError ErrorCode = "order_validation_error"
	// OrderNotFoundError represents an error when an order does not exist.
	OrderNotFoundError ErrorCode = "order_not_found_error"
	// OrderAlreadyFilledError represents an error when a fill is applied to an order
	// that has already been filled.
	OrderAlreadyFilledError ErrorCode = "order_already_filled_error"

	// PersistenceError represents a failure inside a storage transaction.
	// The transaction has been rolled back and none of its effects persist.
	PersistenceError ErrorCode = "persistence_error"
	// PoisonMessageError represents a transport payload that cannot be parsed
	// into the expected event shape.
	PoisonMessageError ErrorCode = "poison_message_error"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisXAddError represents an error when adding entries to a stream in Redis.
	RedisXAddError ErrorCode = "redis_xadd_error"
	// RedisXLenError represents an error when getting the length of a stream in Redis.
	RedisXLenError ErrorCode = "redis_xlen_error"
	// RedisXGroupCreateError represents an error when creating a consumer group in Redis.
	RedisXGroupCreateError ErrorCode = "redis_xgroupcreate_error"
	// RedisXReadGroupError represents an error when reading from a stream group in Redis.
	RedisXReadGroupError ErrorCode = "redis_xreadgroup_error"
	// RedisXAckError represents an error when acknowledging a stream entry in Redis.
	RedisXAckError ErrorCode = "redis_xack_error"
	// RedisXPendingError represents an error when inspecting pending stream entries in Redis.
	RedisXPendingError ErrorCode = "redis_xpending_error"
	// RedisXClaimError represents an error when claiming pending stream entries in Redis.
	RedisXClaimError ErrorCode = "redis_xclaim_error"
)
