package execution

import sterrors "errors"

var (
	ErrNilBuilder                = sterrors.New("substrate: executor builder is required")
	ErrNilMetricsRegistry        = sterrors.New("substrate: metrics registry is required")
	ErrInvalidPoolSize           = sterrors.New("substrate: executor pool size must be at least 1")
	ErrExecutorAlreadyRegistered = sterrors.New("substrate: executor is already registered")
	ErrGlobalExecutorReserved    = sterrors.New("substrate: the global executor id is reserved")
)
