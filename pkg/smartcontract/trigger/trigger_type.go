package trigger

import "fmt"

// Type represents a trigger type.
type Type byte

// Viable list of supported trigger type constants.
const (
	// OnPersist is a trigger type that indicates that the script is being invoked
	// internally by the system during block persistence (before transaction
	// processing).
	OnPersist Type = 0x01

	// PostPersist is a trigger type that indicates that the script is being invoked
	// by the system after block persistence (transaction processing) has
	// finished.
	PostPersist Type = 0x02

	// Verification is a trigger type that indicates that the script is being invoked
	// as a verification function. The verification function can accept multiple
	// parameters and should return a boolean value that indicates the validity
	// of the transaction or block.
	Verification Type = 0x20

	// Application is a trigger type that indicates that the script is being invoked
	// as an application function. The application function can accept multiple
	// parameters, change the states of the blockchain, and return any type of value.
	Application Type = 0x40

	// All represents any trigger type.
	All Type = OnPersist | PostPersist | Verification | Application
)

// String implements the stringer interface.
func (t Type) String() string {
	switch t {
	case OnPersist:
		return "OnPersist"
	case PostPersist:
		return "PostPersist"
	case Verification:
		return "Verification"
	case Application:
		return "Application"
	case All:
		return "All"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// FromString converts a string to the trigger Type.
func FromString(str string) (Type, error) {
	triggers := []Type{OnPersist, PostPersist, Verification, Application, All}
	for _, t := range triggers {
		if t.String() == str {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown trigger type: %s", str)
}
