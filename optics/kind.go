package optics

import (
	"fmt"
	"strings"
)

// Kind names a measured optics parameter.
type Kind string

// Supported parameter kinds.
const (
	PhaseX    Kind = "PHASEX" // phase advance to the next BPM, units of 2π
	PhaseY    Kind = "PHASEY"
	BetaX     Kind = "BETX"
	BetaY     Kind = "BETY"
	DispX     Kind = "DX"
	DispY     Kind = "DY"
	NormDispX Kind = "NDX" // DX / sqrt(BETX)
	Tune      Kind = "Q"   // locations TuneX, TuneY

	F1001R Kind = "F1001R"
	F1001I Kind = "F1001I"
	F1001A Kind = "F1001A"
	F1001P Kind = "F1001P"
	F1010R Kind = "F1010R"
	F1010I Kind = "F1010I"
	F1010A Kind = "F1010A"
	F1010P Kind = "F1010P"
)

// Tune locations: both planes are packed under the Tune kind.
const (
	TuneX = "Q1"
	TuneY = "Q2"
)

// Semantics selects how a residual is computed for a kind.
type Semantics int

const (
	// Linear residuals are plain differences.
	Linear Semantics = iota
	// Relative residuals are differences normalized by the model value (beta-beating).
	Relative
	// Angular residuals are folded into [-0.5, 0.5] (quantities defined modulo 1).
	Angular
)

func (s Semantics) String() string {
	switch s {
	case Linear:
		return "linear"
	case Relative:
		return "relative"
	case Angular:
		return "angular"
	default:
		return fmt.Sprintf("Semantics(%d)", int(s))
	}
}

var kindSemantics = map[Kind]Semantics{
	PhaseX:    Angular,
	PhaseY:    Angular,
	BetaX:     Relative,
	BetaY:     Relative,
	DispX:     Linear,
	DispY:     Linear,
	NormDispX: Linear,
	Tune:      Angular,
	F1001R:    Linear,
	F1001I:    Linear,
	F1001A:    Linear,
	F1001P:    Angular,
	F1010R:    Linear,
	F1010I:    Linear,
	F1010A:    Linear,
	F1010P:    Angular,
}

// AllKinds lists the supported kinds in a stable order.
func AllKinds() []Kind {
	return []Kind{
		PhaseX, PhaseY, BetaX, BetaY, DispX, DispY, NormDispX, Tune,
		F1001R, F1001I, F1001A, F1001P, F1010R, F1010I, F1010A, F1010P,
	}
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	_, ok := kindSemantics[k]
	return ok
}

// Semantics returns the residual semantics of k; unknown kinds are Linear.
func (k Kind) Semantics() Semantics { return kindSemantics[k] }

// ParseKind accepts kind names case-insensitively ("phasex", "BETX", "q").
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownKind)
	}

	return k, nil
}

// ParseKinds parses every name, failing on the first unknown one.
func ParseKinds(names []string) ([]Kind, error) {
	out := make([]Kind, 0, len(names))
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}

	return out, nil
}

// Key identifies one observable.
type Key struct {
	Kind     Kind
	Location string
}

// String renders "KIND/LOCATION".
func (k Key) String() string { return string(k.Kind) + "/" + k.Location }

// Validate checks that the kind is supported and the location non-empty.
func (k Key) Validate() error {
	if !k.Kind.Valid() {
		return fmt.Errorf("%s: %w", k, ErrUnknownKind)
	}
	if strings.TrimSpace(k.Location) == "" {
		return fmt.Errorf("%s: empty location: %w", k, ErrMalformedKey)
	}

	return nil
}

// ParseKey parses the "KIND/LOCATION" form produced by Key.String.
func ParseKey(s string) (Key, error) {
	kind, loc, ok := strings.Cut(s, "/")
	if !ok {
		return Key{}, fmt.Errorf("%q: %w", s, ErrMalformedKey)
	}
	k, err := ParseKind(kind)
	if err != nil {
		return Key{}, err
	}
	key := Key{Kind: k, Location: loc}

	return key, key.Validate()
}
