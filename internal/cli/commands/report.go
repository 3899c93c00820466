package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ufo-models/ufometa/internal/catalog"
	"github.com/ufo-models/ufometa/internal/cli/ui"
	"github.com/ufo-models/ufometa/internal/model"
	"github.com/ufo-models/ufometa/internal/pipeline"
)

// printDerived shows the counts and particle buckets of a valid package
func printDerived(w io.Writer, d *model.Derived, noColor bool) {
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow(catalog.KeyParameters, strconv.Itoa(d.Parameters))
	kv.AddRow(catalog.KeyVertices, strconv.Itoa(d.Vertices))
	kv.AddRow(catalog.KeyCouplingOrders, strconv.Itoa(d.CouplingOrders))
	kv.AddRow(catalog.KeyCouplings, strconv.Itoa(d.Couplings))
	kv.AddRow(catalog.KeyLorentz, strconv.Itoa(d.Lorentz))
	kv.AddRow(catalog.KeyPropagators, strconv.Itoa(d.Propagators))
	kv.AddRow(catalog.KeyDecays, strconv.Itoa(d.Decays))
	kv.AddRow(catalog.KeyNLO, strconv.FormatBool(d.NLO))
	kv.Render()

	ui.List(w, catalog.KeySMParticles, codes(d.SM), noColor)
	ui.List(w, catalog.KeyBSMParticles, codes(d.BSM), noColor)

	var pdgLike []string
	for _, name := range sortedKeys(d.PDGLike) {
		p := d.PDGLike[name]
		pdgLike = append(pdgLike, fmt.Sprintf("%s (id %d, spin %d, charge %g)", name, p.ID, p.Spin, p.Charge))
	}
	ui.List(w, catalog.KeyPDGLike, pdgLike, noColor)

	if len(d.Unclassified) > 0 {
		ui.List(w, "Unclassified particles", codes(d.Unclassified), noColor)
	}
}

func codes(particles map[string]int) []string {
	var out []string
	for _, name := range sortedKeys(particles) {
		out = append(out, fmt.Sprintf("%s (%d)", name, particles[name]))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// printOutcome shows where a published package ended up
func printOutcome(w io.Writer, o *pipeline.Outcome, noColor bool) {
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Catalog file", o.File)
	if o.DOI != "" {
		kv.AddRow(catalog.KeyModelDOI, o.DOI)
	}
	if o.Local != "" {
		kv.AddRow("Local copy", o.Local)
	}
	published := "no"
	if o.Published {
		published = "yes"
	}
	kv.AddRow("Published", published)
	kv.Render()
}

// printWarnings shows the warnings collected for a package
func printWarnings(w io.Writer, warnings []string, noColor bool) {
	for _, msg := range warnings {
		fmt.Fprint(w, ui.Warning(msg, noColor))
	}
}
