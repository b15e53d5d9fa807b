package accelerator

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/opticorr/model"
)

// ElementType classifies machine elements for masking.
type ElementType string

// Element types every accelerator recognises.
const (
	BPMs    ElementType = "bpm"
	Magnets ElementType = "magnet"
	ArcBPMs ElementType = "arc_bpm"
)

// OrbitDPP is the pseudo-variable for the relative momentum offset. It may
// appear as a response column and be requested as a category on its own.
const OrbitDPP = "ORBIT_DPP"

// Accelerator is the capability set of one machine.
type Accelerator interface {
	// Name returns the registry name of the variant.
	Name() string
	// BeamDirection returns +1 or -1.
	BeamDirection() int
	// Variables returns the names of all variables in any of classes, or
	// every variable when no class is given. Unknown classes resolve to nothing.
	Variables(classes ...string) []string
	// VariablesIn is Variables restricted to variables with an element in span.
	VariablesIn(span Span, classes ...string) []string
	// CorrectorVariables is VariablesIn restricted to variables that act on
	// at least one physical corrector element.
	CorrectorVariables(span Span, classes ...string) []string
	// ElementTypesMask reports, per element, whether it matches any of types.
	ElementTypesMask(elements []string, types ...ElementType) ([]bool, error)
	// BaseModelScript renders the script that builds the nominal sequence.
	BaseModelScript(bestKnowledge bool) (string, error)
	// UpdateCorrectionScript renders the script that applies c on top of the
	// base model, restricted to variables of categories.
	UpdateCorrectionScript(c model.Correction, categories []string) (string, error)
	// UpdateDeltapScript renders the script that moves the machine to dpp.
	UpdateDeltapScript(dpp float64) (string, error)
}

// Variable is a logical knob acting on one or more elements.
type Variable struct {
	Name     string    `yaml:"name"`
	Classes  []string  `yaml:"classes"`
	Elements []Element `yaml:"elements,omitempty"`
}

// Element is a physical element at longitudinal position S, in metres
// from the start of the sequence.
type Element struct {
	Name string  `yaml:"name"`
	S    float64 `yaml:"s"`
}

// UnmarshalYAML accepts either {name, s} or a bare element name at S = 0.
func (e *Element) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*e = Element{Name: n.Value}
		return nil
	}
	type plain Element

	return n.Decode((*plain)(e))
}

// Span is a closed range of longitudinal positions. A span whose From lies
// after its To wraps through the start of the ring.
type Span struct {
	From, To float64
}

// Everywhere is the span selecting every variable, including those that
// act on no positioned element.
var Everywhere = Span{From: math.Inf(-1), To: math.Inf(1)}

// Between returns the span [from, to].
func Between(from, to float64) Span { return Span{From: from, To: to} }

func (s Span) everywhere() bool { return math.IsInf(s.From, -1) && math.IsInf(s.To, 1) }

// Contains reports whether position x lies in the span.
func (s Span) Contains(x float64) bool {
	if s.From <= s.To {
		return s.From <= x && x <= s.To
	}

	return x >= s.From || x <= s.To
}

func (v Variable) within(span Span) bool {
	if span.everywhere() {
		return true
	}
	for _, e := range v.Elements {
		if span.Contains(e.S) {
			return true
		}
	}

	return false
}

// catalog is the variable store shared by every variant.
type catalog struct {
	vars []Variable
}

// Variables implements Accelerator.
func (c *catalog) Variables(classes ...string) []string { return c.filter(false, Everywhere, classes) }

// VariablesIn implements Accelerator.
func (c *catalog) VariablesIn(span Span, classes ...string) []string {
	return c.filter(false, span, classes)
}

// CorrectorVariables implements Accelerator.
func (c *catalog) CorrectorVariables(span Span, classes ...string) []string {
	return c.filter(true, span, classes)
}

func (c *catalog) filter(correctorsOnly bool, span Span, classes []string) []string {
	want := make(map[string]bool, len(classes))
	for _, cl := range classes {
		want[cl] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range c.vars {
		if correctorsOnly && len(v.Elements) == 0 {
			continue
		}
		if len(classes) > 0 && !anyIn(v.Classes, want) {
			continue
		}
		if !v.within(span) {
			continue
		}
		if !seen[v.Name] {
			seen[v.Name] = true
			out = append(out, v.Name)
		}
	}
	sort.Strings(out)

	return out
}

// CorrectorCatalog resolves classes to the corrector variables of Acc with
// an element inside Span.
type CorrectorCatalog struct {
	Acc  Accelerator
	Span Span
}

// Variables returns Acc.CorrectorVariables(Span, classes...).
func (c CorrectorCatalog) Variables(classes ...string) []string {
	return c.Acc.CorrectorVariables(c.Span, classes...)
}

func anyIn(xs []string, set map[string]bool) bool {
	for _, x := range xs {
		if set[x] {
			return true
		}
	}

	return false
}

// elementMasker matches element names case-insensitively against one
// pattern per element type.
type elementMasker map[ElementType]*regexp.Regexp

func newElementMasker(patterns map[ElementType]string) (elementMasker, error) {
	m := make(elementMasker, len(patterns))
	for t, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("element pattern %s: %w", t, err)
		}
		m[t] = re
	}

	return m, nil
}

func (m elementMasker) mask(elements []string, types []ElementType) ([]bool, error) {
	res := make([]*regexp.Regexp, 0, len(types))
	for _, t := range types {
		re, ok := m[t]
		if !ok {
			return nil, fmt.Errorf("%q: %w", t, ErrUnknownElementType)
		}
		res = append(res, re)
	}
	out := make([]bool, len(elements))
	for i, e := range elements {
		for _, re := range res {
			if re.MatchString(e) {
				out[i] = true
				break
			}
		}
	}

	return out, nil
}

func validateBeamDirection(acc string, d int) error {
	if d != 1 && d != -1 {
		return &DefinitionError{Accelerator: acc, Reason: fmt.Sprintf("beam direction %d is neither 1 nor -1", d)}
	}

	return nil
}
