package callflag

import (
	"errors"
	"strings"
)

// CallFlag represents a call flag.
type CallFlag byte

// Default flags.
const (
	ReadStates CallFlag = 1 << iota
	WriteStates
	AllowCall
	AllowNotify
	States            = ReadStates | WriteStates
	ReadOnly          = ReadStates | AllowCall
	All               = States | AllowCall | AllowNotify
	NoneFlag CallFlag = 0
)

var flagString = map[CallFlag]string{
	ReadStates:  "ReadStates",
	WriteStates: "WriteStates",
	AllowCall:   "AllowCall",
	AllowNotify: "AllowNotify",
	States:      "States",
	ReadOnly:    "ReadOnly",
	All:         "All",
	NoneFlag:    "None",
}

// basicFlags are all simple one-bit flags.
var basicFlags = []CallFlag{ReadStates, WriteStates, AllowCall, AllowNotify}

// Has returns true iff all the flags specified in cf are set in f.
func (f CallFlag) Has(cf CallFlag) bool {
	return f&cf == cf
}

// IsValid checks whether f is a valid combination of defined flags.
func (f CallFlag) IsValid() bool {
	return f&^All == 0
}

// String implements the fmt.Stringer interface.
func (f CallFlag) String() string {
	if s, ok := flagString[f]; ok {
		return s
	}
	var res strings.Builder
	for _, flag := range basicFlags {
		if f.Has(flag) {
			if res.Len() != 0 {
				res.WriteString(", ")
			}
			res.WriteString(flagString[flag])
		}
	}
	return res.String()
}

// FromString parses a CallFlag from the given string, either a simple flag
// name or a comma-separated list of them.
func FromString(s string) (CallFlag, error) {
	var res CallFlag

	ss := strings.Split(s, ",")
	for _, sub := range ss {
		sub = strings.TrimSpace(sub)
		var knownFlag bool
		for f, name := range flagString {
			if sub == name {
				res |= f
				knownFlag = true
				break
			}
		}
		if !knownFlag {
			return NoneFlag, errors.New("unknown flag")
		}
	}
	return res, nil
}

// MarshalJSON implements the json.Marshaler interface.
func (f CallFlag) MarshalJSON() ([]byte, error) {
	if !f.IsValid() {
		return nil, errors.New("invalid call flag")
	}
	return []byte(`"` + f.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *CallFlag) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("not a string")
	}
	v, err := FromString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
