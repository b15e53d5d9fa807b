package accelerator

import (
	"fmt"
	"text/template"

	"github.com/katalvlaran/opticorr/model"
)

// PSBOptions configures a PSB instance.
type PSBOptions struct {
	Ring int // 1..4
}

// PSB is the Proton Synchrotron Booster, one instance per ring.
type PSB struct {
	catalog
	ring   int
	masker elementMasker
}

var _ Accelerator = (*PSB)(nil)

var psbBase = template.Must(template.New("psb_base").Parse(`option, -echo;
call, file = 'acc-models-psb/psb.seq';
{{- if .BestKnowledge}}
call, file = 'errors_r{{.Ring}}.madx';
{{- end}}
beam, sequence = psb{{.Ring}}, particle = proton, pc = 0.5708;
use, sequence = psb{{.Ring}};
twiss;
`))

var psbDeltap = template.Must(template.New("psb_deltap").Parse(`! momentum offset
twiss, deltap = {{printf "%.15g" .DPP}};
`))

// NewPSB validates the ring and builds its catalog.
func NewPSB(opts PSBOptions) (*PSB, error) {
	if opts.Ring < 1 || opts.Ring > 4 {
		return nil, &DefinitionError{Accelerator: "psb", Reason: fmt.Sprintf("ring %d is outside 1..4", opts.Ring)}
	}
	masker, err := newElementMasker(map[ElementType]string{
		BPMs:    `^BR[1-4]?\.BPM.*`,
		Magnets: `^BR[1-4]?\.(Q|B|K).*`,
		ArcBPMs: `^BR[1-4]?\.BPM[0-9]+L[1-4]$`,
	})
	if err != nil {
		return nil, err
	}

	return &PSB{catalog: catalog{vars: psbVariables(opts.Ring)}, ring: opts.Ring, masker: masker}, nil
}

// The booster has 16 identical periods; QCD correctors sit in the third
// straight of each period.
const (
	psbPeriods = 16
	psbPeriod  = 9.8175
	psbQFO     = 2.654
	psbQDE     = 3.554
	psbQCD     = 7.100
)

func psbVariables(ring int) []Variable {
	qf := Variable{Name: fmt.Sprintf("kbrqf%d", ring), Classes: []string{"MQ", "QF"}}
	qd := Variable{Name: fmt.Sprintf("kbrqd%d", ring), Classes: []string{"MQ", "QD"}}
	var qcd []Variable
	for p := 1; p <= psbPeriods; p++ {
		start := float64(p-1) * psbPeriod
		qf.Elements = append(qf.Elements, Element{Name: fmt.Sprintf("BR%d.QFO%d1", ring, p), S: start + psbQFO})
		qd.Elements = append(qd.Elements, Element{Name: fmt.Sprintf("BR%d.QDE%d", ring, p), S: start + psbQDE})
		qcd = append(qcd, Variable{
			Name:     fmt.Sprintf("kbr%d.qcd%d", ring, p),
			Classes:  []string{"QCD"},
			Elements: []Element{{Name: fmt.Sprintf("BR%d.QCD%dL3", ring, p), S: start + psbQCD}},
		})
	}

	return append([]Variable{qf, qd}, qcd...)
}

// Name implements Accelerator.
func (p *PSB) Name() string { return "psb" }

// Ring returns 1..4.
func (p *PSB) Ring() int { return p.ring }

// BeamDirection implements Accelerator. The booster only runs forward.
func (p *PSB) BeamDirection() int { return 1 }

// ElementTypesMask implements Accelerator.
func (p *PSB) ElementTypesMask(elements []string, types ...ElementType) ([]bool, error) {
	return p.masker.mask(elements, types)
}

// BaseModelScript implements Accelerator.
func (p *PSB) BaseModelScript(bestKnowledge bool) (string, error) {
	return render(psbBase, map[string]any{"Ring": p.ring, "BestKnowledge": bestKnowledge})
}

// UpdateCorrectionScript implements Accelerator.
func (p *PSB) UpdateCorrectionScript(c model.Correction, categories []string) (string, error) {
	return updateCorrection(p, c, categories)
}

// UpdateDeltapScript implements Accelerator.
func (p *PSB) UpdateDeltapScript(dpp float64) (string, error) {
	return render(psbDeltap, map[string]any{"DPP": dpp})
}
