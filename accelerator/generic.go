package accelerator

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/opticorr/model"
)

// GenericDefinition is the YAML description of a machine without a
// dedicated variant:
//
//	name: sis18
//	beam_direction: 1
//	sequence: sis18.seq
//	elements:
//	  bpm: "^GS.*DX$"
//	  magnet: "^GS.*(QS|MU).*"
//	variables:
//	  - {name: kqf, classes: [QF], elements: [GS01QS1F]}
type GenericDefinition struct {
	Name          string                 `yaml:"name"`
	BeamDirection int                    `yaml:"beam_direction"`
	Sequence      string                 `yaml:"sequence"`
	Elements      map[ElementType]string `yaml:"elements"`
	Variables     []Variable             `yaml:"variables"`
}

// Generic is an accelerator described entirely by a GenericDefinition.
type Generic struct {
	catalog
	def    GenericDefinition
	masker elementMasker
}

var _ Accelerator = (*Generic)(nil)

var genericBase = template.Must(template.New("generic_base").Parse(`option, -echo;
call, file = '{{.Sequence}}';
{{- if .BestKnowledge}}
call, file = 'errors.madx';
{{- end}}
use, sequence = {{.Name}};
twiss;
`))

var genericDeltap = template.Must(template.New("generic_deltap").Parse(`twiss, deltap = {{printf "%.15g" .DPP}};
`))

// NewGeneric validates def and builds the accelerator.
// Missing element patterns match every element; beam direction defaults to 1.
func NewGeneric(def GenericDefinition) (*Generic, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, &DefinitionError{Accelerator: "generic", Reason: "missing name"}
	}
	if def.BeamDirection == 0 {
		def.BeamDirection = 1
	}
	if err := validateBeamDirection(def.Name, def.BeamDirection); err != nil {
		return nil, err
	}
	if def.Sequence == "" {
		def.Sequence = def.Name + ".seq"
	}
	patterns := map[ElementType]string{BPMs: ".*", Magnets: ".*", ArcBPMs: ".*"}
	for t, p := range def.Elements {
		if _, ok := patterns[t]; !ok {
			return nil, fmt.Errorf("accelerator %s: %q: %w", def.Name, t, ErrUnknownElementType)
		}
		patterns[t] = p
	}
	masker, err := newElementMasker(patterns)
	if err != nil {
		return nil, &DefinitionError{Accelerator: def.Name, Reason: err.Error()}
	}
	seen := make(map[string]bool, len(def.Variables))
	for _, v := range def.Variables {
		if strings.TrimSpace(v.Name) == "" {
			return nil, &DefinitionError{Accelerator: def.Name, Reason: "variable without name"}
		}
		if seen[v.Name] {
			return nil, &DefinitionError{Accelerator: def.Name, Reason: fmt.Sprintf("duplicated variable %q", v.Name)}
		}
		seen[v.Name] = true
	}

	return &Generic{catalog: catalog{vars: def.Variables}, def: def, masker: masker}, nil
}

// DecodeGeneric reads a YAML GenericDefinition and builds the accelerator.
func DecodeGeneric(r io.Reader) (*Generic, error) {
	var def GenericDefinition
	if err := yaml.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("accelerator: decode definition: %w", err)
	}

	return NewGeneric(def)
}

// LoadGeneric reads a GenericDefinition file.
func LoadGeneric(path string) (*Generic, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("accelerator: open definition: %w", err)
	}
	defer fh.Close()

	return DecodeGeneric(fh)
}

// Name implements Accelerator.
func (g *Generic) Name() string { return g.def.Name }

// BeamDirection implements Accelerator.
func (g *Generic) BeamDirection() int { return g.def.BeamDirection }

// ElementTypesMask implements Accelerator.
func (g *Generic) ElementTypesMask(elements []string, types ...ElementType) ([]bool, error) {
	return g.masker.mask(elements, types)
}

// BaseModelScript implements Accelerator.
func (g *Generic) BaseModelScript(bestKnowledge bool) (string, error) {
	return render(genericBase, map[string]any{
		"Name":          g.def.Name,
		"Sequence":      g.def.Sequence,
		"BestKnowledge": bestKnowledge,
	})
}

// UpdateCorrectionScript implements Accelerator.
func (g *Generic) UpdateCorrectionScript(c model.Correction, categories []string) (string, error) {
	return updateCorrection(g, c, categories)
}

// UpdateDeltapScript implements Accelerator.
func (g *Generic) UpdateDeltapScript(dpp float64) (string, error) {
	return render(genericDeltap, map[string]any{"DPP": dpp})
}
