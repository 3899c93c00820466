package catalog

import (
	"github.com/ufo-models/ufometa/internal/model"
)

const (
	// UnassignedDOI marks a record whose archival deposit is still pending
	UnassignedDOI = "0"

	// PythonVersion is the major language version UFO packages are read as
	PythonVersion = 3
)

// UserInput holds the answers the user gives during synthesis
type UserInput struct {
	Name     string
	Version  string
	Homepage string
}

// Synthesize merges derived content metadata and user input into a copy of
// base. An existing Model Homepage or Model Doi in base is kept. The result
// is checked against the catalog schema and nil is returned on violation.
func Synthesize(base *Document, derived *model.Derived, in UserInput) (*Document, error) {
	doc := base.Clone()

	homepage := in.Homepage
	if doc.Has(KeyHomepage) {
		homepage = doc.String(KeyHomepage)
	}
	doi := UnassignedDOI
	if doc.Has(KeyModelDOI) {
		doi = doc.String(KeyModelDOI)
	}

	fields := []struct {
		key   string
		value interface{}
	}{
		{KeyModelName, in.Name},
		{KeyHomepage, homepage},
		{KeyModelDOI, doi},
		{KeyModelVersion, in.Version},
		{KeyPythonVersion, PythonVersion},
		{KeyNLO, derived.NLO},
		{KeyAllParticles, ids(derived.AllParticles)},
		{KeySMParticles, ids(derived.SM)},
		{KeyBSMParticles, ids(derived.BSM)},
		{KeyPDGLike, pdgLike(derived.PDGLike)},
		{KeyParameters, derived.Parameters},
		{KeyVertices, derived.Vertices},
		{KeyCouplingOrders, derived.CouplingOrders},
		{KeyCouplings, derived.Couplings},
		{KeyLorentz, derived.Lorentz},
		{KeyPropagators, derived.Propagators},
		{KeyDecays, derived.Decays},
	}
	for _, f := range fields {
		if err := doc.Set(f.key, f.value); err != nil {
			return nil, err
		}
	}

	if err := ValidateRecord(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ids and pdgLike encode nil maps as {} rather than null
func ids(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func pdgLike(m map[string]model.PDGLike) map[string]model.PDGLike {
	if m == nil {
		return map[string]model.PDGLike{}
	}
	return m
}
