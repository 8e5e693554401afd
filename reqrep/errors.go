package reqrep

import sterrors "errors"

var (
	ErrNilProcessor       = sterrors.New("substrate: processor is required")
	ErrNilMetricsRegistry = sterrors.New("substrate: metrics registry is required")
	ErrNilExecutors       = sterrors.New("substrate: executor registry is required")
	ErrDisconnected       = sterrors.New("substrate: reqrep service is disconnected")
	ErrClientClosed       = sterrors.New("substrate: reqrep client is closed")
	ErrReplyConsumed      = sterrors.New("substrate: reply was already consumed")
	ErrTypeMismatch       = sterrors.New("substrate: reqrep id is bound to different request/reply types")
)
