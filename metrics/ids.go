package metrics

import (
	"github.com/oklog/ulid/v2"

	"github.com/substratelabs/substrate/ids"
)

// MetricID uniquely identifies a metric family. Its exposition name is
// the ULID prefixed with "M".
type MetricID ulid.ULID

// NewMetricID returns a fresh MetricID.
func NewMetricID() MetricID {
	return MetricID(ids.New())
}

// ParseMetricID decodes a MetricID from its canonical ULID encoding
// (without the "M" prefix).
func ParseMetricID(s string) (MetricID, error) {
	id, err := ids.Parse(s)
	return MetricID(id), err
}

// MustParseMetricID is ParseMetricID for package-level constants.
func MustParseMetricID(s string) MetricID {
	return MetricID(ids.MustParse(s))
}

// ULID returns the underlying identifier.
func (m MetricID) ULID() ulid.ULID { return ulid.ULID(m) }

// String returns the canonical ULID encoding.
func (m MetricID) String() string { return ulid.ULID(m).String() }

// Name returns the exposition-format metric name, i.e. "M" + ULID.
func (m MetricID) Name() string { return "M" + m.String() }

// LabelID uniquely identifies a label. Its exposition name is the ULID
// prefixed with "L".
type LabelID ulid.ULID

// NewLabelID returns a fresh LabelID.
func NewLabelID() LabelID {
	return LabelID(ids.New())
}

// ParseLabelID decodes a LabelID from its canonical ULID encoding
// (without the "L" prefix).
func ParseLabelID(s string) (LabelID, error) {
	id, err := ids.Parse(s)
	return LabelID(id), err
}

// MustParseLabelID is ParseLabelID for package-level constants.
func MustParseLabelID(s string) LabelID {
	return LabelID(ids.MustParse(s))
}

// ULID returns the underlying identifier.
func (l LabelID) ULID() ulid.ULID { return ulid.ULID(l) }

// String returns the canonical ULID encoding.
func (l LabelID) String() string { return ulid.ULID(l).String() }

// Name returns the exposition-format label name, i.e. "L" + ULID.
func (l LabelID) Name() string { return "L" + l.String() }
