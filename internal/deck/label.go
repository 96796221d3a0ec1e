package deck

import (
	"fmt"
	"strings"
)

// Label identifies one of the two decks.
type Label int

const (
	A Label = iota
	B
)

// Labels lists every deck in console order.
var Labels = [...]Label{A, B}

// Other returns the opposite deck.
func (l Label) Other() Label {
	switch l {
	case A:
		return B
	case B:
		return A
	default:
		panic(fmt.Sprintf("deck: invalid label %d", int(l)))
	}
}

func (l Label) String() string {
	switch l {
	case A:
		return "A"
	case B:
		return "B"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Valid reports whether l is A or B.
func (l Label) Valid() bool {
	return l == A || l == B
}

// ParseLabel accepts "a", "A", "b" or "B".
func ParseLabel(s string) (Label, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return A, nil
	case "B":
		return B, nil
	default:
		return A, fmt.Errorf("invalid deck %q (want A or B)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid deck label %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Direction is the way a transition moves the crossfader.
type Direction int

const (
	// NoDirection means no transition is in flight.
	NoDirection Direction = iota
	AToB
	BToA
)

// Toward returns the direction that ends on target.
func Toward(target Label) Direction {
	if target == B {
		return AToB
	}
	return BToA
}

// From returns the outgoing deck.
func (d Direction) From() Label {
	if d == BToA {
		return B
	}
	return A
}

// To returns the incoming deck.
func (d Direction) To() Label {
	return d.From().Other()
}

func (d Direction) String() string {
	switch d {
	case AToB:
		return "A->B"
	case BToA:
		return "B->A"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
