package reqrep

import (
	"github.com/oklog/ulid/v2"

	"github.com/substratelabs/substrate/ids"
)

// ReqRepID identifies a service contract: the pair of request and
// reply types a processor implements. Multiple instances may serve the
// same ReqRepID concurrently.
type ReqRepID ulid.ULID

// NewReqRepID returns a fresh ReqRepID.
func NewReqRepID() ReqRepID {
	return ReqRepID(ids.New())
}

// MustParseReqRepID decodes the canonical ULID encoding and panics on
// malformed input.
func MustParseReqRepID(s string) ReqRepID {
	return ReqRepID(ids.MustParse(s))
}

// ULID returns the underlying identifier.
func (r ReqRepID) ULID() ulid.ULID { return ulid.ULID(r) }

// String returns the canonical ULID encoding.
func (r ReqRepID) String() string { return ulid.ULID(r).String() }

// MessageID identifies a single request envelope.
type MessageID ulid.ULID

// NewMessageID returns a fresh MessageID.
func NewMessageID() MessageID {
	return MessageID(ids.New())
}

// ULID returns the underlying identifier.
func (m MessageID) ULID() ulid.ULID { return ulid.ULID(m) }

// String returns the canonical ULID encoding.
func (m MessageID) String() string { return ulid.ULID(m).String() }

// InstanceID identifies one backend instance of a service.
type InstanceID ulid.ULID

// NewInstanceID returns a fresh InstanceID.
func NewInstanceID() InstanceID {
	return InstanceID(ids.New())
}

// ULID returns the underlying identifier.
func (i InstanceID) ULID() ulid.ULID { return ulid.ULID(i) }

// String returns the canonical ULID encoding.
func (i InstanceID) String() string { return ulid.ULID(i).String() }
