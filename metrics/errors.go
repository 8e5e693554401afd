package metrics

import sterrors "errors"

var (
	ErrNilCollector           = sterrors.New("substrate: metrics collector is required")
	ErrNoDescriptors          = sterrors.New("substrate: metrics collector owns no descriptors")
	ErrHelpRequired           = sterrors.New("substrate: metric help must not be blank")
	ErrHelpTooLong            = sterrors.New("substrate: metric help exceeds the max length")
	ErrLabelNameTooLong       = sterrors.New("substrate: label name exceeds the max length")
	ErrLabelValueRequired     = sterrors.New("substrate: constant label value must not be blank")
	ErrLabelValueTooLong      = sterrors.New("substrate: constant label value exceeds the max length")
	ErrDuplicateVariableLabel = sterrors.New("substrate: variable label names must be unique")
	ErrNoVariableLabels       = sterrors.New("substrate: vector metrics require at least one variable label")
	ErrNoBuckets              = sterrors.New("substrate: histograms require at least one bucket")
	ErrDescMismatch           = sterrors.New("substrate: descriptor conflicts with an already registered descriptor")
	ErrAlreadyRegistered      = sterrors.New("substrate: descriptor is already registered")
)
