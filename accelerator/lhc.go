package accelerator

import (
	"fmt"
	"math"
	"text/template"

	"github.com/katalvlaran/opticorr/model"
)

// LHCOptions configures an LHC instance.
type LHCOptions struct {
	Beam       int     // 1 or 2
	Energy     float64 // GeV; defaults to 450
	OpticsFile string  // optional modifiers file
}

// LHC is the Large Hadron Collider, one instance per beam.
type LHC struct {
	catalog
	beam      int
	direction int
	energy    float64
	optics    string
	masker    elementMasker
}

var _ Accelerator = (*LHC)(nil)

var lhcBase = template.Must(template.New("lhc_base").Parse(`option, -echo;
call, file = 'acc-models-lhc/lhc.seq';
{{- if .Optics}}
call, file = '{{.Optics}}';
{{- end}}
beam, sequence = LHCB{{.Beam}}, particle = proton, energy = {{.Energy}}, bv = {{.Direction}};
use, sequence = LHCB{{.Beam}};
{{- if .BestKnowledge}}
call, file = 'errors_b{{.Beam}}.madx';
{{- end}}
twiss;
`))

var lhcDeltap = template.Must(template.New("lhc_deltap").Parse(`! momentum offset
twiss, deltap = {{printf "%.15g" .DPP}};
match, deltap = {{printf "%.15g" .DPP}};
  vary, name = dQx.b{{.Beam}}; vary, name = dQy.b{{.Beam}};
  constraint, range = #E, mux = qx0, muy = qy0;
  lmdif;
endmatch;
`))

// NewLHC validates the beam and builds the LHC catalog for it.
// Beam 2 runs against the clockwise direction.
func NewLHC(opts LHCOptions) (*LHC, error) {
	if opts.Beam != 1 && opts.Beam != 2 {
		return nil, &DefinitionError{Accelerator: "lhc", Reason: fmt.Sprintf("beam %d is neither 1 nor 2", opts.Beam)}
	}
	if opts.Energy == 0 {
		opts.Energy = 450
	}
	dir := 1
	if opts.Beam == 2 {
		dir = -1
	}
	masker, err := newElementMasker(map[ElementType]string{
		BPMs:    `^BPM.*\.B[12]$`,
		Magnets: `^M.*\.B[12]$`,
		ArcBPMs: `^BPM[^.]*\.(1[4-9]|[2-9][0-9])[RL][1-8]\.B[12]$`,
	})
	if err != nil {
		return nil, err
	}

	return &LHC{
		catalog:   catalog{vars: lhcVariables(opts.Beam)},
		beam:      opts.Beam,
		direction: dir,
		energy:    opts.Energy,
		optics:    opts.OpticsFile,
		masker:    masker,
	}, nil
}

// Nominal LHC layout: ring length and the position of each IP, in metres
// from IP1 along beam 1. Magnet positions are offsets from their IP.
const (
	lhcLength = 26658.8832
	lhcQ4     = 165.0
	lhcQ5     = 196.0
	lhcArcQ23 = 911.3
	lhcArcQ27 = 1125.1
)

var lhcIPs = [8]float64{0, 3332.436, 6664.720, 9997.005, 13329.289, 16661.725, 19994.162, 23315.370}

// lhcS returns the position offset metres from ip, wrapped onto the ring.
func lhcS(ip int, offset float64) float64 {
	return math.Mod(lhcIPs[ip-1]+offset+lhcLength, lhcLength)
}

// lhcVariables lists the quadrupole knobs per family:
// MQY (kq4/kq5 around each IP), MQSl (skew arc families) and MQT (tune trims).
func lhcVariables(beam int) []Variable {
	var vars []Variable
	for ip := 1; ip <= 8; ip++ {
		for q, d := range map[int]float64{4: lhcQ4, 5: lhcQ5} {
			for side, sign := range map[string]float64{"l": -1, "r": 1} {
				vars = append(vars, Variable{
					Name:    fmt.Sprintf("kq%d.%s%db%d", q, side, ip, beam),
					Classes: []string{"MQY", fmt.Sprintf("MQY_Q%d", q)},
					Elements: []Element{{
						Name: fmt.Sprintf("MQY.%d%s%d.B%d", q, side, ip, beam),
						S:    lhcS(ip, sign*d),
					}},
				})
			}
		}
		next := ip%8 + 1
		vars = append(vars, Variable{
			Name:    fmt.Sprintf("kqs.a%d%db%d", ip, next, beam),
			Classes: []string{"MQSl"},
			Elements: []Element{
				{Name: fmt.Sprintf("MQS.23R%d.B%d", ip, beam), S: lhcS(ip, lhcArcQ23)},
				{Name: fmt.Sprintf("MQS.27L%d.B%d", next, beam), S: lhcS(next, -lhcArcQ27)},
			},
		})
	}
	for _, plane := range []string{"x", "y"} {
		vars = append(vars, Variable{
			Name:    fmt.Sprintf("dQ%s.b%d", plane, beam),
			Classes: []string{"MQT"},
		})
	}

	return vars
}

// Name implements Accelerator.
func (l *LHC) Name() string { return "lhc" }

// Beam returns 1 or 2.
func (l *LHC) Beam() int { return l.beam }

// BeamDirection implements Accelerator.
func (l *LHC) BeamDirection() int { return l.direction }

// SetBeamDirection overrides the direction; only ±1 are accepted.
func (l *LHC) SetBeamDirection(d int) error {
	if err := validateBeamDirection("lhc", d); err != nil {
		return err
	}
	l.direction = d

	return nil
}

// ElementTypesMask implements Accelerator.
func (l *LHC) ElementTypesMask(elements []string, types ...ElementType) ([]bool, error) {
	return l.masker.mask(elements, types)
}

// BaseModelScript implements Accelerator.
func (l *LHC) BaseModelScript(bestKnowledge bool) (string, error) {
	return render(lhcBase, map[string]any{
		"Beam":          l.beam,
		"Energy":        l.energy,
		"Direction":     l.direction,
		"Optics":        l.optics,
		"BestKnowledge": bestKnowledge,
	})
}

// UpdateCorrectionScript implements Accelerator.
func (l *LHC) UpdateCorrectionScript(c model.Correction, categories []string) (string, error) {
	return updateCorrection(l, c, categories)
}

// UpdateDeltapScript implements Accelerator.
func (l *LHC) UpdateDeltapScript(dpp float64) (string, error) {
	return render(lhcDeltap, map[string]any{"DPP": dpp, "Beam": l.beam})
}
