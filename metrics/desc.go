package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Descriptor validation bounds. Historical revisions of the exposition
// rules disagreed on the label value bound (150 vs 30); these constants
// are the single source of truth for this codebase.
const (
	// MaxHelpLen bounds metric help text (bytes).
	MaxHelpLen = 250
	// MaxLabelNameLen bounds label names (bytes). Generated names are
	// "L" + a 26-char ULID and always fit.
	MaxLabelNameLen = 30
	// MaxLabelValueLen bounds constant label values (bytes).
	MaxLabelValueLen = 150
)

// ConstLabel is a constant label pair attached to every sample of a
// metric family.
type ConstLabel struct {
	ID    LabelID
	Value string
}

// Desc describes a metric family: its fully-qualified name, help text,
// constant labels, and variable label names. A Desc is immutable once
// built and is identified by two hashes:
//
//   - ID: fq name + constant label values — identifies one family
//     instance; registering the same ID twice is a duplicate.
//   - DimHash: help + all label names — identifies the family schema;
//     all descs sharing an fq name must share a DimHash.
type Desc struct {
	metricID    MetricID
	fqName      string
	help        string
	constLabels []ConstLabel
	varLabels   []LabelID

	id      uint64
	dimHash uint64
}

// NewDesc validates and builds a descriptor. Constant labels are stored
// sorted by label name. Variable labels are optional here; vector
// builders enforce the at-least-one rule.
func NewDesc(metricID MetricID, help string, varLabels []LabelID, constLabels []ConstLabel) (*Desc, error) {
	if strings.TrimSpace(help) == "" {
		return nil, ErrHelpRequired
	}
	if len(help) > MaxHelpLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrHelpTooLong, len(help), MaxHelpLen)
	}

	sorted := make([]ConstLabel, len(constLabels))
	copy(sorted, constLabels)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	for _, cl := range sorted {
		if len(cl.ID.Name()) > MaxLabelNameLen {
			return nil, fmt.Errorf("%w: %s", ErrLabelNameTooLong, cl.ID.Name())
		}
		if strings.TrimSpace(cl.Value) == "" {
			return nil, fmt.Errorf("%w: %s", ErrLabelValueRequired, cl.ID.Name())
		}
		if len(cl.Value) > MaxLabelValueLen {
			return nil, fmt.Errorf("%w: %s: %d > %d", ErrLabelValueTooLong, cl.ID.Name(), len(cl.Value), MaxLabelValueLen)
		}
	}

	seen := make(map[LabelID]bool, len(varLabels))
	for _, vl := range varLabels {
		if len(vl.Name()) > MaxLabelNameLen {
			return nil, fmt.Errorf("%w: %s", ErrLabelNameTooLong, vl.Name())
		}
		if seen[vl] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVariableLabel, vl.Name())
		}
		seen[vl] = true
	}

	d := &Desc{
		metricID:    metricID,
		fqName:      metricID.Name(),
		help:        help,
		constLabels: sorted,
		varLabels:   append([]LabelID(nil), varLabels...),
	}
	d.id = d.hashID()
	d.dimHash = d.hashDim()
	return d, nil
}

// MustNewDesc is NewDesc that panics on invalid input.
func MustNewDesc(metricID MetricID, help string, varLabels []LabelID, constLabels []ConstLabel) *Desc {
	d, err := NewDesc(metricID, help, varLabels, constLabels)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Desc) hashID() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(d.fqName)
	for _, cl := range d.constLabels {
		_, _ = h.Write([]byte{0xff})
		_, _ = h.WriteString(cl.Value)
	}
	return h.Sum64()
}

func (d *Desc) hashDim() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(d.help)
	for _, cl := range d.constLabels {
		_, _ = h.Write([]byte{0xff})
		_, _ = h.WriteString(cl.ID.Name())
	}
	for _, vl := range d.varLabels {
		_, _ = h.Write([]byte{0xff})
		_, _ = h.WriteString(vl.Name())
	}
	return h.Sum64()
}

// MetricID returns the id the descriptor was built from.
func (d *Desc) MetricID() MetricID { return d.metricID }

// FQName returns the fully-qualified exposition name.
func (d *Desc) FQName() string { return d.fqName }

// Help returns the help text.
func (d *Desc) Help() string { return d.help }

// ConstLabels returns a copy of the constant labels, sorted by name.
func (d *Desc) ConstLabels() []ConstLabel {
	return append([]ConstLabel(nil), d.constLabels...)
}

// VariableLabels returns a copy of the variable label ids.
func (d *Desc) VariableLabels() []LabelID {
	return append([]LabelID(nil), d.varLabels...)
}

// ID identifies this family instance (fq name + const label values).
func (d *Desc) ID() uint64 { return d.id }

// DimHash identifies the family schema (help + label names).
func (d *Desc) DimHash() uint64 { return d.dimHash }

// HasLabel reports whether the descriptor carries the given label pair,
// either as a constant label with that exact value or as a variable
// label (any value).
func (d *Desc) HasLabel(name, value string) bool {
	for _, cl := range d.constLabels {
		if cl.ID.Name() == name {
			return cl.Value == value
		}
	}
	for _, vl := range d.varLabels {
		if vl.Name() == name {
			return true
		}
	}
	return false
}

func (d *Desc) String() string {
	return fmt.Sprintf("Desc{fqName: %q, help: %q, constLabels: %v, variableLabels: %v}",
		d.fqName, d.help, d.constLabels, d.varLabels)
}
