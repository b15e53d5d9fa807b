package optics_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/opticorr/optics"
)

func TestFrame_AddRejectsDuplicates(t *testing.T) {
	f := optics.NewFrame()
	key := optics.Key{Kind: optics.PhaseX, Location: "BPM1"}
	require.NoError(t, f.Add(key, optics.NewEntry(0.1, 0)))
	require.ErrorIs(t, f.Add(key, optics.NewEntry(0.2, 0)), optics.ErrDuplicateKey)

	require.NoError(t, f.Set(key, optics.NewEntry(0.3, 0)))
	v, ok := f.Value(key)
	require.True(t, ok)
	require.Equal(t, 0.3, v)
}

func TestFrame_RejectsMalformedKeys(t *testing.T) {
	f := optics.NewFrame()
	require.ErrorIs(t, f.Add(optics.Key{Kind: "NOPE", Location: "B"}, optics.Entry{}), optics.ErrUnknownKind)
	require.ErrorIs(t, f.Add(optics.Key{Kind: optics.BetaX, Location: " "}, optics.Entry{}), optics.ErrMalformedKey)
}

func TestFrame_KeysKeepInsertionOrder(t *testing.T) {
	f := optics.NewFrame()
	for _, loc := range []string{"C", "A", "B"} {
		require.NoError(t, f.Add(optics.Key{Kind: optics.BetaY, Location: loc}, optics.NewEntry(1, 0)))
	}
	f.SetTunes(0.28, 0.31)

	want := []optics.Key{
		{Kind: optics.Tune, Location: optics.TuneX},
		{Kind: optics.Tune, Location: optics.TuneY},
		{Kind: optics.BetaY, Location: "C"},
		{Kind: optics.BetaY, Location: "A"},
		{Kind: optics.BetaY, Location: "B"},
	}
	if diff := cmp.Diff(want, f.Keys(optics.Tune, optics.BetaY)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 5, f.Len())
	require.Equal(t, []optics.Kind{optics.BetaY, optics.Tune}, f.Kinds())
}

func TestFrame_CloneIsIndependent(t *testing.T) {
	f := optics.NewFrame()
	key := optics.Key{Kind: optics.DispX, Location: "BPM1"}
	require.NoError(t, f.Add(key, optics.NewEntry(1, 0)))
	c := f.Clone()
	require.NoError(t, c.Set(key, optics.NewEntry(2, 0)))
	v, _ := f.Value(key)
	require.Equal(t, 1.0, v)
}

func TestParseKey(t *testing.T) {
	k, err := optics.ParseKey("phasex/BPM.12R1.B1")
	require.NoError(t, err)
	require.Equal(t, optics.Key{Kind: optics.PhaseX, Location: "BPM.12R1.B1"}, k)
	require.Equal(t, "PHASEX/BPM.12R1.B1", k.String())

	_, err = optics.ParseKey("PHASEX")
	require.ErrorIs(t, err, optics.ErrMalformedKey)
	_, err = optics.ParseKey("FOO/BPM")
	require.ErrorIs(t, err, optics.ErrUnknownKind)
}

func TestFrameCodec_RoundTrip(t *testing.T) {
	src := `
- kind: phasex
  entries:
    - {location: BPM1, value: 0.25, error: 0.001}
    - {location: BPM2, value: 0.31, error: 0.002, weight: 0}
- kind: Q
  entries:
    - {location: Q1, value: 0.28}
`
	f, err := optics.DecodeFrame(strings.NewReader(src))
	require.NoError(t, err)
	e, ok := f.Get(optics.Key{Kind: optics.PhaseX, Location: "BPM1"})
	require.True(t, ok)
	require.Equal(t, optics.Entry{Value: 0.25, Error: 0.001, Weight: 1}, e)
	e, _ = f.Get(optics.Key{Kind: optics.PhaseX, Location: "BPM2"})
	require.Equal(t, 0.0, e.Weight)

	var buf bytes.Buffer
	require.NoError(t, optics.EncodeFrame(&buf, f))
	back, err := optics.DecodeFrame(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(f.Keys(), back.Keys()); diff != "" {
		t.Fatalf("keys changed (-want +got):\n%s", diff)
	}
}

func TestFrameCodec_Errors(t *testing.T) {
	_, err := optics.DecodeFrame(strings.NewReader("- kind: XYZ\n  entries: []\n"))
	require.ErrorIs(t, err, optics.ErrUnknownKind)

	dup := "- kind: DX\n  entries:\n    - {location: A, value: 1}\n    - {location: A, value: 2}\n"
	_, err = optics.DecodeFrame(strings.NewReader(dup))
	require.ErrorIs(t, err, optics.ErrDuplicateKey)
}
