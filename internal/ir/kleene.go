package ir

import "fmt"

// Kleene is a value of Kleene's strong three-valued logic.
//
// The values are ordered False < Unknown < True for the truth ordering, so
// conjunction is the minimum and disjunction the maximum. The information
// ordering places Unknown above both definite values; Join moves up in it.
type Kleene uint8

const (
	// False is the definite value 0.
	False Kleene = iota
	// Unknown is the indefinite value 1/2.
	Unknown
	// True is the definite value 1.
	True
)

// Of converts a Go bool to a definite Kleene value.
func Of(b bool) Kleene {
	if b {
		return True
	}
	return False
}

// Not returns the Kleene negation.
func (k Kleene) Not() Kleene {
	return True - k
}

// And returns the Kleene conjunction.
func (k Kleene) And(o Kleene) Kleene {
	return min(k, o)
}

// Or returns the Kleene disjunction.
func (k Kleene) Or(o Kleene) Kleene {
	return max(k, o)
}

// IsDefinite reports whether k is True or False.
func (k Kleene) IsDefinite() bool {
	return k != Unknown
}

// Valid reports whether k is one of the three Kleene values.
func (k Kleene) Valid() bool {
	return k <= True
}

// Join returns the least upper bound of a and b in the information ordering:
// a if both agree, Unknown otherwise.
func Join(a, b Kleene) Kleene {
	if a == b {
		return a
	}
	return Unknown
}

// LessOrEqual reports whether a is at least as precise as b, i.e. a ⊑ b in
// the information ordering.
func LessOrEqual(a, b Kleene) bool {
	return a == b || b == Unknown
}

// String renders k in the customary 0 / 1/2 / 1 notation.
func (k Kleene) String() string {
	switch k {
	case False:
		return "0"
	case Unknown:
		return "1/2"
	case True:
		return "1"
	default:
		return fmt.Sprintf("Kleene(%d)", uint8(k))
	}
}

// ParseKleene parses the notations accepted in analysis definitions.
func ParseKleene(s string) (Kleene, error) {
	switch s {
	case "0", "false", "F":
		return False, nil
	case "1/2", "unknown", "?":
		return Unknown, nil
	case "1", "true", "T":
		return True, nil
	}
	return False, fmt.Errorf("invalid Kleene value %q", s)
}
