package transaction

import "fmt"

// AttrType represents the purpose of the attribute.
type AttrType uint8

// List of valid attribute types.
const (
	// HighPriority marks transaction as high priority, it can only be
	// used by the committee.
	HighPriority AttrType = 1
	// OracleResponseT stores oracle response for the request made with
	// matching ID.
	OracleResponseT AttrType = 0x11
	// NotValidBeforeT sets the minimum chain height the transaction is
	// valid at.
	NotValidBeforeT AttrType = 0x20
	// ConflictsT declares a conflicting transaction hash, only one of
	// the conflicting transactions can get on chain.
	ConflictsT AttrType = 0x21
	// ReservedLowerBound is the lower bound of the range reserved for
	// experimental attribute types.
	ReservedLowerBound AttrType = 0xe0
	// ReservedUpperBound is the upper bound of the range reserved for
	// experimental attribute types.
	ReservedUpperBound AttrType = 0xff
)

// String implements fmt.Stringer interface.
func (t AttrType) String() string {
	switch t {
	case HighPriority:
		return "HighPriority"
	case OracleResponseT:
		return "OracleResponse"
	case NotValidBeforeT:
		return "NotValidBefore"
	case ConflictsT:
		return "Conflicts"
	default:
		return fmt.Sprintf("AttrType(%d)", int(t))
	}
}

func (t AttrType) allowMultiple() bool {
	return t == ConflictsT
}

// IsValidAttrType returns whether the provided attribute type is valid within
// the provided set of reserved attribute ranges.
func IsValidAttrType(reservedAttributesEnabled bool, attrType AttrType) bool {
	switch attrType {
	case HighPriority, OracleResponseT, NotValidBeforeT, ConflictsT:
		return true
	}
	if reservedAttributesEnabled && ReservedLowerBound <= attrType && attrType <= ReservedUpperBound {
		return true
	}
	return false
}
