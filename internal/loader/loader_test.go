package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/model"
	"github.com/ufo-models/ufometa/internal/ufotest"
)

func TestLoadMinimalPackage(t *testing.T) {
	dir := ufotest.NewPackage(t, nil)

	tables, err := Load(dir)
	require.NoError(t, err)

	for _, kind := range []model.Kind{
		model.Parameter, model.Particle, model.CouplingOrder,
		model.Coupling, model.Lorentz, model.Vertex,
	} {
		assert.Equal(t, 1, tables.Count(kind), "kind %s", kind)
	}
	for _, kind := range []model.Kind{model.Propagator, model.Decay, model.CTCoupling, model.CTParameter, model.CTVertex} {
		_, present := tables.Get(kind)
		assert.False(t, present, "kind %s", kind)
	}

	particles, _ := tables.Get(model.Particle)
	s0 := particles.Objects[0]
	assert.Equal(t, "S0", s0.Name)
	assert.Equal(t, "Particle", s0.Class)
	assert.Equal(t, "particles.py", s0.File)
	assert.Equal(t, 9000006, s0.Attrs["pdg_code"])
	assert.Equal(t, model.Ref{Class: "Parameter", Name: "ZERO"}, s0.Attrs["mass"])

	records, err := tables.Particles()
	require.NoError(t, err)
	assert.Equal(t, []model.ParticleRecord{{Name: "S0", PDGCode: 9000006, Spin: 1}}, records)

	vertices, _ := tables.Get(model.Vertex)
	couplings, ok := vertices.Objects[0].Attrs["couplings"].([]model.Entry)
	require.True(t, ok)
	require.Len(t, couplings, 1)
	assert.Equal(t, []interface{}{0, 0}, couplings[0].Key)
	assert.Equal(t, model.Ref{Class: "Coupling", Name: "GC_1"}, couplings[0].Value)
}

func TestLoadOptionalAndCounterTermModules(t *testing.T) {
	files := ufotest.NLOFiles()
	files["propagators.py"] = ufotest.Propagators
	files["decays.py"] = ufotest.Decays
	dir := ufotest.NewPackage(t, files)

	tables, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []model.Kind{
		model.Parameter, model.Particle, model.CouplingOrder, model.Coupling,
		model.Lorentz, model.Vertex, model.Propagator, model.Decay,
		model.CTCoupling, model.CTParameter, model.CTVertex,
	}, tables.Present())

	ct, _ := tables.Get(model.CTCoupling)
	require.Len(t, ct.Objects, 1)
	assert.Equal(t, "UVGC_1", ct.Objects[0].Name)
	assert.Equal(t, "Coupling", ct.Objects[0].Class)

	// the counter-term coupling lives in its own module, not in couplings.py
	assert.Equal(t, 1, tables.Count(model.Coupling))
	assert.Equal(t, 1, tables.Count(model.CTVertex))
}

func TestLoadConstructorDefaults(t *testing.T) {
	files := ufotest.Files()
	files["lorentz.py"] = "from object_library import Lorentz\nSSS1 = Lorentz(name = 'SSS1', spins = [ 1, 1, 1 ])\n"
	files["propagators.py"] = "from object_library import Propagator\nt = Propagator(name = 't', numerator = 'complex(0,1)')\n"
	dir := ufotest.NewPackage(t, files)

	tables, err := Load(dir)
	require.NoError(t, err)

	lorentz, _ := tables.Get(model.Lorentz)
	require.Len(t, lorentz.Objects, 1)
	assert.Equal(t, "external", lorentz.Objects[0].Attrs["structure"])
	assert.Equal(t, []interface{}{1, 1, 1}, lorentz.Objects[0].Attrs["spins"])

	propagators, _ := tables.Get(model.Propagator)
	require.Len(t, propagators.Objects, 1)
	denominator, set := propagators.Objects[0].Attrs["denominator"]
	assert.True(t, set)
	assert.Nil(t, denominator)
	assert.Equal(t, "complex(0,1)", propagators.Objects[0].Attrs["numerator"])
}

func TestLoadMissingFilesAreNamed(t *testing.T) {
	dir := ufotest.NewPackage(t, nil)
	require.NoError(t, os.Remove(filepath.Join(dir, "lorentz.py")))
	require.NoError(t, os.Remove(filepath.Join(dir, "write_param_card.py")))

	_, err := Load(dir)
	require.Error(t, err)

	var structure *errors.PackageStructureError
	require.ErrorAs(t, err, &structure)
	assert.Equal(t, []string{"write_param_card.py", "lorentz.py"}, structure.Missing)
}

func TestLoadKeepsOnlyLibraryClassInstances(t *testing.T) {
	particles := ufotest.ParticlesWith(ufotest.ScalarParticle, `
class Particle(object):
    require_args = ['pdg_code']

class Heavy(Particle):
    pass

fake = Particle(pdg_code = 1)
heavy = Heavy(pdg_code = 2)
__hidden = Param.ZERO
alias = S0
`)
	dir := ufotest.NewPackage(t, map[string]string{"particles.py": particles})

	tables, err := Load(dir)
	require.NoError(t, err)

	table, _ := tables.Get(model.Particle)
	var names []string
	for _, obj := range table.Objects {
		names = append(names, obj.Name)
	}
	assert.Equal(t, []string{"S0", "alias"}, names)
}

func TestLoadAntiParticlesKeepClass(t *testing.T) {
	particles := ufotest.ParticlesWith(`
ch = Particle(pdg_code = 9000007,
              name = 'ch+',
              antiname = 'ch-',
              spin = 1,
              color = 3,
              mass = Param.ZERO,
              width = Param.ZERO,
              texname = 'ch+',
              antitexname = 'ch-',
              charge = 1,
              GhostNumber = 0,
              LeptonNumber = 2)

ch__tilde__ = ch.anti()
`)
	vertices := `
from object_library import all_vertices, Vertex
import particles as P
import couplings as C
import lorentz as L

V_1 = Vertex(name = 'V_1',
             particles = [ P.ch__tilde__, P.ch, P.ch ],
             color = [ '1' ],
             lorentz = [ L.SSS1 ],
             couplings = {(0,0):C.GC_1})
`
	dir := ufotest.NewPackage(t, map[string]string{"particles.py": particles, "vertices.py": vertices})

	tables, err := Load(dir)
	require.NoError(t, err)

	records, err := tables.Particles()
	require.NoError(t, err)
	assert.Equal(t, []model.ParticleRecord{
		{Name: "ch+", PDGCode: 9000007, Spin: 1, Charge: 1},
		{Name: "ch-", PDGCode: -9000007, Spin: 1, Charge: -1},
	}, records)

	table, _ := tables.Get(model.Particle)
	anti := table.Objects[1]
	assert.Equal(t, -3, anti.Attrs["color"])
	assert.Equal(t, -2, anti.Attrs["LeptonNumber"])
}

func TestLoadImportFailures(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		kind  errors.ImportKind
		file  string
	}{
		{
			name:  "python 2 print statement",
			files: map[string]string{"write_param_card.py": "print 'param card'\n"},
			kind:  errors.IncompatibleRuntime,
			file:  "write_param_card.py",
		},
		{
			name:  "third-party import",
			files: map[string]string{"couplings.py": "import numpy\n" + ufotest.Couplings},
			kind:  errors.MissingDependency,
			file:  "couplings.py",
		},
		{
			name:  "undefined name",
			files: map[string]string{"parameters.py": ufotest.Parameters + "\nMZ = Parameter(name='MZ', nature='internal', type='real', value=MZ0, texname='M_Z')\n"},
			kind:  errors.UnresolvedReference,
			file:  "parameters.py",
		},
		{
			name:  "missing constructor argument",
			files: map[string]string{"lorentz.py": "from object_library import Lorentz\nFFV1 = Lorentz(name = 'FFV1', structure = 'Gamma(3,2,1)')\n"},
			kind:  errors.BadCallSignature,
			file:  "lorentz.py",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := ufotest.NewPackage(t, tt.files)

			_, err := Load(dir)
			require.Error(t, err)
			assert.True(t, errors.IsImportKind(err, tt.kind), "got %v", err)

			var fail *errors.ImportFailure
			require.ErrorAs(t, err, &fail)
			assert.Equal(t, tt.file, fail.File)
		})
	}
}

func TestNormalizePromotesSingleDirectory(t *testing.T) {
	root := t.TempDir()
	ufotest.WritePackage(t, filepath.Join(root, "SM_NLO"), ufotest.Files())
	ufotest.WritePackage(t, filepath.Join(root, "SM_NLO", "__pycache__"), map[string]string{"particles.cpython-39.pyc": "junk"})
	ufotest.WritePackage(t, filepath.Join(root, "SM_NLO"), map[string]string{"particles.pyc": "junk", "vertices.py~": "junk"})
	ufotest.WritePackage(t, root, map[string]string{".DS_Store": "junk"})

	require.NoError(t, Normalize(root))

	assert.FileExists(t, filepath.Join(root, "__init__.py"))
	assert.FileExists(t, filepath.Join(root, "vertices.py"))
	assert.NoDirExists(t, filepath.Join(root, "SM_NLO"))
	assert.NoDirExists(t, filepath.Join(root, promoteDir))
	assert.NoDirExists(t, filepath.Join(root, "__pycache__"))
	assert.NoFileExists(t, filepath.Join(root, "particles.pyc"))
	assert.NoFileExists(t, filepath.Join(root, "vertices.py~"))

	require.NoError(t, CheckRequiredFiles(root))
}

func TestNormalizeSubdirectoryNamedLikeItsParent(t *testing.T) {
	root := t.TempDir()
	files := ufotest.Files()
	files["model/readme.txt"] = "nested"
	ufotest.WritePackage(t, filepath.Join(root, "model"), files)

	require.NoError(t, Normalize(root))
	assert.FileExists(t, filepath.Join(root, "__init__.py"))
	assert.FileExists(t, filepath.Join(root, "model", "readme.txt"))
}

func TestNormalizeFlatPackageIsUntouched(t *testing.T) {
	dir := ufotest.NewPackage(t, map[string]string{"extra/notes.txt": "kept"})

	require.NoError(t, Normalize(dir))
	assert.FileExists(t, filepath.Join(dir, "extra", "notes.txt"))
}

func TestNormalizeRejectsAmbiguousLayouts(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, root string)
	}{
		{
			name: "two packages",
			setup: func(t *testing.T, root string) {
				ufotest.WritePackage(t, filepath.Join(root, "a"), ufotest.Files())
				ufotest.WritePackage(t, filepath.Join(root, "b"), ufotest.Files())
			},
		},
		{
			name: "package beside a file",
			setup: func(t *testing.T, root string) {
				ufotest.WritePackage(t, filepath.Join(root, "a"), ufotest.Files())
				ufotest.WritePackage(t, root, map[string]string{"README": "hi"})
			},
		},
		{
			name: "directory without __init__.py",
			setup: func(t *testing.T, root string) {
				ufotest.WritePackage(t, filepath.Join(root, "a"), map[string]string{"particles.py": ufotest.Particles})
			},
		},
		{
			name:  "empty",
			setup: func(t *testing.T, root string) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)

			err := Normalize(root)
			var layout *errors.LayoutError
			require.ErrorAs(t, err, &layout)
			assert.Equal(t, errors.ErrLayout, errors.Code(err))
		})
	}
}
