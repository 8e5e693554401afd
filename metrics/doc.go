// Package metrics provides the process-wide metric registry for the
// substrate.
//
// Metrics and labels are named by ULIDs rather than human-readable
// strings: names change over time and break dashboards, while a ULID
// assigned once stays stable for the life of the system. Metric names
// carry an "M" prefix and label names an "L" prefix so they satisfy the
// Prometheus exposition-format naming rules (names must not start with
// a digit).
//
// The Registry wraps a prometheus registry and enforces descriptor
// consistency up front: two descriptors sharing a fully-qualified name
// must agree on help text and on their label-name sets, and may differ
// only in constant-label values. Violations are returned as errors,
// never panics. Gathering is always a fresh snapshot and never fails;
// an empty result is a valid answer.
package metrics
