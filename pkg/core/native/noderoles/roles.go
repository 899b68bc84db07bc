package noderoles

// Role represents the type of a participant.
type Role byte

// Role enumeration.
const (
	StateValidator Role = 4
	Oracle         Role = 8
	NeoFSAlphabet  Role = 16
	P2PNotary      Role = 32
)

// roleNames is a map of valid roles to names.
var roleNames = map[Role]string{
	StateValidator: "StateValidator",
	Oracle:         "Oracle",
	NeoFSAlphabet:  "NeoFSAlphabet",
	P2PNotary:      "P2PNotary",
}

// IsValid checks whether the value is a valid Role.
func IsValid(r Role) bool {
	_, ok := roleNames[r]
	return ok
}

// String returns the role's human-readable name.
func (r Role) String() string {
	name, ok := roleNames[r]
	if !ok {
		return "Unknown"
	}
	return name
}
