package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/opticorr/config"
	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/model"
	"github.com/katalvlaran/opticorr/optics"
	"github.com/katalvlaran/opticorr/response"
)

const catalogYAML = `
name: ring
variables:
  - {name: kq4, classes: [MQY], elements: [{name: MQ4, s: 40}]}
  - {name: kq5, classes: [MQY], elements: [{name: MQ5, s: 60}]}
  - {name: ksx, classes: [SEXT], elements: [SX1]}
`

// CLISuite drives the opticorr command tree against files in a temp dir.
type CLISuite struct {
	suite.Suite
	dir     string
	cfgPath string
}

func (s *CLISuite) SetupTest() {
	t := s.T()
	s.dir = t.TempDir()
	path := func(name string) string { return filepath.Join(s.dir, name) }

	keys := []optics.Key{
		{Kind: optics.DispX, Location: "BPM.A"},
		{Kind: optics.DispX, Location: "BPM.B"},
		{Kind: optics.PhaseX, Location: "BPM.A"},
		{Kind: optics.PhaseX, Location: "BPM.B"},
		{Kind: optics.Tune, Location: optics.TuneX},
		{Kind: optics.Tune, Location: optics.TuneY},
	}
	vars := []string{"kq4", "kq5"}
	base := optics.NewFrame()
	for i, v := range []float64{1.2, 0.8, 0.25, 0.30} {
		require.NoError(t, base.Add(keys[i], optics.NewEntry(v, 0.01)))
	}
	base.SetTunes(0.28, 0.31)
	R, err := matrix.NewDenseRows([][]float64{
		{1.0, 0.2}, {-0.5, 1.0}, {0.3, -0.4}, {0.8, 0.5}, {0.2, 0.1}, {-0.1, 0.3},
	})
	require.NoError(t, err)

	lin, err := model.NewLinear(base, keys, vars, R)
	require.NoError(t, err)
	truth, err := model.CorrectionFrom(vars, []float64{0.1, -0.05})
	require.NoError(t, err)
	meas, err := lin.ApplyCorrection(context.Background(), truth)
	require.NoError(t, err)
	resp, err := response.New(keys, vars, R)
	require.NoError(t, err)

	require.NoError(t, optics.SaveFrame(path("model.yaml"), base))
	require.NoError(t, optics.SaveFrame(path("meas.yaml"), meas))
	require.NoError(t, response.Save(path("response.yaml"), resp))
	require.NoError(t, os.WriteFile(path("ring.yaml"), []byte(catalogYAML), 0o600))

	cfg := config.DefaultConfig()
	cfg.Accelerator = config.AcceleratorConfig{Name: "generic", CatalogPath: path("ring.yaml")}
	cfg.Correction.OpticsParams = []string{"DX", "PHASEX", "Q"}
	cfg.Correction.Weights = []float64{1, 1, 1}
	cfg.Correction.Iterations = 2
	cfg.Inputs = config.InputsConfig{
		Measurement: path("meas.yaml"),
		Model:       path("model.yaml"),
		Response:    path("response.yaml"),
	}
	cfg.Output.DBPath = path("runs.db")
	cfg.Logging.Level = "error"
	s.cfgPath = path("opticorr.yaml")
	require.NoError(t, cfg.Save(s.cfgPath))
}

func (s *CLISuite) run(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", s.cfgPath}, args...))
	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func (s *CLISuite) TestCorrectArchivesRunAndWritesScript() {
	script := filepath.Join(s.dir, "out", "trim.madx")
	out, err := s.run("correct", "--script", script)
	s.Require().NoError(err)

	fields := strings.Fields(out)
	s.Require().GreaterOrEqual(len(fields), 3)
	s.Require().Equal("run", fields[0])
	runID := fields[1]
	s.Require().Equal("DONE", fields[2])

	body, err := os.ReadFile(script)
	s.Require().NoError(err)
	s.Require().Contains(string(body), "kq4 = kq4 + (")
	s.Require().Contains(string(body), "kq5 = kq5 + (")

	out, err = s.run("runs", "show", runID)
	s.Require().NoError(err)
	s.Require().Contains(out, "run "+runID+" DONE")
	s.Require().Contains(out, "  1 rms=")
	s.Require().Contains(out, "  2 rms=")

	out, err = s.run("script", "correction", "--run", runID, "--machine")
	s.Require().NoError(err)
	s.Require().Equal(string(body), out)

	out, err = s.run("script", "correction", "--run", runID)
	s.Require().NoError(err)
	s.Require().Contains(out, "kq4 = kq4 + (")
}

func (s *CLISuite) TestCorrectFlagsOverrideConfig() {
	_, err := s.run("correct", "--iterations", "0")
	s.Require().ErrorIs(err, config.ErrInvalidConfig)
}

func (s *CLISuite) TestCorrectMissingResponseName() {
	_, err := s.run("correct", "--response-name", "nope")
	s.Require().Error(err)
}

func (s *CLISuite) TestResponseComputeImportList() {
	out := filepath.Join(s.dir, "computed.yaml")
	printed, err := s.run("response", "compute", "--out", out, "--name", "computed")
	s.Require().NoError(err)
	s.Require().Contains(printed, "kq4\t")
	s.Require().Contains(printed, "kq5\t")

	m, err := response.Load(out)
	s.Require().NoError(err)
	s.Require().Equal([]string{"kq4", "kq5"}, m.Cols())
	rows, cols := m.Shape()
	s.Require().Equal(6, rows)
	s.Require().Equal(2, cols)
	v, ok := m.Value(optics.Key{Kind: optics.DispX, Location: "BPM.B"}, "kq4")
	s.Require().True(ok)
	s.Require().InDelta(-0.5, v, 1e-6)

	_, err = s.run("response", "import", filepath.Join(s.dir, "response.yaml"), "--name", "imported")
	s.Require().NoError(err)

	listed, err := s.run("response", "list")
	s.Require().NoError(err)
	s.Require().Equal([]string{"computed", "imported"}, strings.Fields(listed))

	res, err := s.run("correct", "--response-name", "imported")
	s.Require().NoError(err)
	s.Require().Contains(res, "DONE")
}

func (s *CLISuite) TestResponseComputeHonoursSpan() {
	cfg, err := config.Load(s.cfgPath)
	s.Require().NoError(err)
	from, to := 30.0, 50.0
	cfg.Correction.Span = config.SpanConfig{From: &from, To: &to}
	s.Require().NoError(cfg.Save(s.cfgPath))

	out := filepath.Join(s.dir, "span.yaml")
	_, err = s.run("response", "compute", "--out", out)
	s.Require().NoError(err)
	m, err := response.Load(out)
	s.Require().NoError(err)
	s.Require().Equal([]string{"kq4"}, m.Cols())

	// the correction only moves kq4
	printed, err := s.run("correct")
	s.Require().NoError(err)
	s.Require().Contains(printed, "kq4")
	s.Require().NotContains(printed, "kq5")
}

func (s *CLISuite) TestScripts() {
	out, err := s.run("script", "base")
	s.Require().NoError(err)
	s.Require().Contains(out, "use, sequence = ring;")

	out, err = s.run("script", "deltap", "--dpp", "0.001")
	s.Require().NoError(err)
	s.Require().Contains(out, "deltap = 0.001")

	_, err = s.run("script", "correction")
	s.Require().Error(err)
}

func (s *CLISuite) TestVersion() {
	out, err := s.run("version")
	s.Require().NoError(err)
	s.Require().Equal("opticorr dev\n", out)
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}
