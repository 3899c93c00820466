package model

import (
	"fmt"
	"math"

	"github.com/ufo-models/ufometa/internal/errors"
)

// Spin codes use the UFO 2S+1 convention
const (
	SpinGhost   = -1
	SpinScalar  = 1
	SpinFermion = 2
	SpinVector  = 3
	SpinRarita  = 4
	SpinTensor  = 5
)

// ParticleRecord is the physics summary of one declared particle
type ParticleRecord struct {
	Name        string
	PDGCode     int
	Spin        int
	Charge      float64
	GhostNumber int
}

// IsGhost reports whether the particle only serves internal bookkeeping
func (p ParticleRecord) IsGhost() bool {
	return p.GhostNumber != 0
}

// ParticleOf reads a particle record from a Particle object. GhostNumber
// defaults to 0 when the model does not declare it.
func ParticleOf(obj Object) (ParticleRecord, error) {
	rec := ParticleRecord{Name: obj.DeclaredName()}

	var err error
	if rec.PDGCode, err = intAttr(obj, "pdg_code", true); err != nil {
		return rec, err
	}
	if rec.Spin, err = intAttr(obj, "spin", true); err != nil {
		return rec, err
	}
	if rec.GhostNumber, err = intAttr(obj, "GhostNumber", false); err != nil {
		return rec, err
	}

	raw, ok := obj.Attrs["charge"]
	if !ok {
		return rec, attrError(obj, "charge", "is missing")
	}
	charge, ok := realValue(raw)
	if !ok {
		return rec, attrError(obj, "charge", fmt.Sprintf("must be a real number, got %s", describe(raw)))
	}
	rec.Charge = charge
	return rec, nil
}

// Particles reads every record of the Particle table
func (ts *Tables) Particles() ([]ParticleRecord, error) {
	t, ok := ts.Get(Particle)
	if !ok {
		return nil, nil
	}
	out := make([]ParticleRecord, 0, len(t.Objects))
	for _, obj := range t.Objects {
		rec, err := ParticleOf(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func intAttr(obj Object, name string, required bool) (int, error) {
	raw, ok := obj.Attrs[name]
	if !ok {
		if required {
			return 0, attrError(obj, name, "is missing")
		}
		return 0, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int(v), nil
		}
	}
	return 0, attrError(obj, name, fmt.Sprintf("must be an integer, got %s", describe(raw)))
}

func realValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case complex128:
		if imag(v) == 0 {
			return real(v), true
		}
	}
	return 0, false
}

func describe(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case Unknown:
		return "an unresolved expression"
	case Ref:
		return fmt.Sprintf("%s %s", x.Class, x.Name)
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func attrError(obj Object, attr, problem string) error {
	return &errors.ImportFailure{
		Kind:    errors.BadCallSignature,
		File:    obj.File,
		Line:    obj.Line,
		Message: fmt.Sprintf("particle %s: %s %s", obj.DeclaredName(), attr, problem),
	}
}
