package validate

import (
	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/model"
	"github.com/ufo-models/ufometa/internal/pdgid"
)

// Content checks the content tables and derives counts and particle buckets.
// Ghost particles take no part in any particle check.
func Content(tables *model.Tables) (*model.Derived, error) {
	return CheckContent(tables, nil)
}

// CheckContent is Content with every named check reported to rep
func CheckContent(tables *model.Tables, rep Reporter) (*model.Derived, error) {
	if rep == nil {
		rep = nopReporter{}
	}
	d := model.NewDerived()

	for _, info := range model.Kinds {
		table, present := tables.Get(info.Kind)
		name := "Check " + info.File

		switch info.Presence {
		case model.Required:
			if table.Len() == 0 {
				err := &errors.EmptyTableError{Kind: string(info.Kind), File: info.File}
				rep.Check(name, err)
				return nil, err
			}
		case model.Optional:
			if present && table.Len() == 0 {
				err := &errors.EmptyTableError{Kind: string(info.Kind), File: info.File}
				rep.Check(name, err)
				return nil, err
			}
		case model.CounterTerm:
			continue
		}

		if info.Kind == model.Particle {
			if err := classifyParticles(d, tables, info); err != nil {
				rep.Check(name, err)
				return nil, err
			}
		}
		if present {
			rep.Check(name, nil)
		}
	}

	d.Parameters = tables.Count(model.Parameter)
	d.Vertices = tables.Count(model.Vertex)
	d.CouplingOrders = tables.Count(model.CouplingOrder)
	d.Couplings = tables.Count(model.Coupling)
	d.Lorentz = tables.Count(model.Lorentz)
	d.Propagators = tables.Count(model.Propagator)
	d.Decays = tables.Count(model.Decay)
	d.NLO = tables.Count(model.CTCoupling) > 0 &&
		tables.Count(model.CTParameter) > 0 &&
		tables.Count(model.CTVertex) > 0
	return d, nil
}

func classifyParticles(d *model.Derived, tables *model.Tables, info model.KindInfo) error {
	records, err := tables.Particles()
	if err != nil {
		return err
	}

	seen := make(map[int]bool)
	var dupes []int
	for _, p := range records {
		if p.IsGhost() {
			continue
		}
		if seen[p.PDGCode] {
			dupes = append(dupes, p.PDGCode)
			continue
		}
		seen[p.PDGCode] = true
		d.AllParticles[p.Name] = p.PDGCode
	}
	if len(seen) == 0 {
		return &errors.EmptyTableError{Kind: "non-ghost " + string(info.Kind), File: info.File}
	}
	if len(dupes) > 0 {
		return errors.NewDuplicateIdentifierError(dupes)
	}

	for _, p := range records {
		if p.IsGhost() {
			continue
		}
		switch pdgid.Classify(p.PDGCode, p.Spin, p.Charge) {
		case pdgid.SMElementary:
			d.SM[p.Name] = p.PDGCode
		case pdgid.BSMValid:
			d.BSM[p.Name] = p.PDGCode
		case pdgid.Inconsistent:
			d.PDGLike[p.Name] = model.PDGLike{ID: p.PDGCode, Spin: p.Spin, Charge: p.Charge}
		default:
			d.Unclassified[p.Name] = p.PDGCode
		}
	}
	return nil
}
