// Package ufotest provides a minimal, valid UFO model package for tests.
// Every required table holds exactly one object and no optional module is
// present.
package ufotest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ObjectLibrary defines the UFO base classes, including the NLO ones
const ObjectLibrary = `##
##
## Feynrules Header
##
##
##
##
##

import cmath
import re

class UFOError(Exception):
    """Exception raised if when inconsistencies are detected in the UFO model."""
    pass

class UFOBaseClass(object):
    """The class from which all FeynRules classes are derived."""

    require_args = []

    def __init__(self, *args, **options):
        assert(len(self.require_args) == len (args))

        for i, name in enumerate(self.require_args):
            setattr(self, name, args[i])

        for (option, value) in options.items():
            setattr(self, option, value)

    def get(self, name):
        return getattr(self, name)

    def set(self, name, value):
        setattr(self, name, value)

    def get_all(self):
        """Return a dictionary containing all the information of the object"""
        return self.__dict__

    def __str__(self):
        return self.name

    def nice_string(self):
        """ return string with the full information """
        return '\n'.join(['%s \t: %s' %(name, value) for name, value in self.__dict__.items()])

    def __repr__(self):
        replacements = [
            ('+','__plus__'),
            ('-','__minus__'),
            ('@','__at__'),
            ('!','__exclam__'),
            ('?','__quest__'),
            ('*','__star__'),
            ('~','__tilde__')
            ]
        text = self.name
        for orig,sub in replacements:
            text = text.replace(orig,sub)
        return text


all_particles = []

class Particle(UFOBaseClass):
    """A standard Particle"""

    require_args=['pdg_code', 'name', 'antiname', 'spin', 'color', 'mass', 'width', 'texname', 'antitexname', 'charge']

    require_args_all = ['pdg_code', 'name', 'antiname', 'spin', 'color', 'mass', 'width', 'texname', 'antitexname','counterterm','charge', 'line', 'propagating', 'goldstoneboson', 'propagator']

    def __init__(self, pdg_code, name, antiname, spin, color, mass, width, texname,
                 antitexname, charge , line=None, propagating=True, counterterm=None, goldstoneboson=False,
                 propagator=None, **options):

        args= (pdg_code, name, antiname, spin, color, mass, width, texname,
                antitexname, float(charge))

        UFOBaseClass.__init__(self, *args,  **options)

        global all_particles
        all_particles.append(self)

        self.propagating = propagating
        self.goldstoneboson= goldstoneboson

        self.selfconjugate = (name == antiname)
        if not line:
            self.line = self.find_line()
        else:
            self.line = line

    def find_line(self):
        """find how we draw a line if not defined
        valid output: dashed/straight/wavy/curly/double/swavy/scurly
        """
        spin = self.spin
        color = self.color
        if spin == 1:
            return 'dashed'
        elif spin == 2:
            if not self.selfconjugate:
                return 'straight'
            elif color == 1:
                return 'swavy'
            else:
                return 'scurly'
        elif spin == 3:
            if color == 1:
                return 'wavy'
            else:
                return 'curly'
        elif spin == 5:
            return 'double'
        elif spin == -1:
            return 'dotted'
        else:
            return 'dashed' # not supported yet

    def anti(self):
        if self.selfconjugate:
            raise Exception('%s has no anti particle.' % self.name)
        outdic = {}
        for k,v in self.__dict__.items():
            if k not in self.require_args_all:
                outdic[k] = -v
        if self.color in [1,8]:
            newcolor = self.color
        else:
            newcolor = -self.color

        return Particle(-self.pdg_code, self.antiname, self.name, self.spin, newcolor, self.mass, self.width,
                        self.antitexname, self.texname, -self.charge, self.line, self.propagating, self.goldstoneboson, **outdic)


all_parameters = []

class Parameter(UFOBaseClass):

    require_args=['name', 'nature', 'type', 'value', 'texname']

    def __init__(self, name, nature, type, value, texname, lhablock=None, lhacode=None):

        args = (name,nature,type,value,texname)

        UFOBaseClass.__init__(self, *args)

        args=(name,nature,type,value,texname)

        global all_parameters
        all_parameters.append(self)

        if (lhablock is None or lhacode is None)  and nature == 'external':
            raise Exception('Need LHA information for external parameter "%s".' % name)
        self.lhablock = lhablock
        self.lhacode = lhacode

all_CTparameters = []

class CTParameter(UFOBaseClass):

    require_args=['name', 'type', 'value', 'texname']

    def __init__(self, name, type, value, texname):

        args = (name,type,value,texname)

        UFOBaseClass.__init__(self, *args)

        global all_CTparameters
        all_CTparameters.append(self)

    def finite(self):
        try:
            return self.value[0]
        except KeyError:
            return 'ZERO'

all_vertices = []

class Vertex(UFOBaseClass):

    require_args=['name', 'particles', 'color', 'lorentz', 'couplings']

    def __init__(self, name, particles, color, lorentz, couplings, **opt):

        args = (name, particles, color, lorentz, couplings)

        UFOBaseClass.__init__(self, *args, **opt)

        args=(particles,color,lorentz,couplings)

        global all_vertices
        all_vertices.append(self)

all_CTvertices = []

class CTVertex(UFOBaseClass):

    require_args=['name', 'particles', 'color', 'lorentz', 'couplings', 'type', 'loop_particles']

    def __init__(self, name, particles, color, lorentz, couplings, type, loop_particles, **opt):

        args = (name, particles, color, lorentz, couplings, type, loop_particles)

        UFOBaseClass.__init__(self, *args, **opt)

        args=(particles,color,lorentz,couplings, type, loop_particles)

        global all_CTvertices
        all_CTvertices.append(self)

all_couplings = []

class Coupling(UFOBaseClass):

    require_args=['name', 'value', 'order']

    require_args_all=['name', 'value', 'order', 'loop_particles', 'counterterm']

    def __init__(self, name, value, order, **opt):

        args =(name, value, order)
        UFOBaseClass.__init__(self, *args, **opt)
        global all_couplings
        all_couplings.append(self)

all_lorentz = []

class Lorentz(UFOBaseClass):

    require_args=['name','spins','structure']

    def __init__(self, name, spins, structure='external', **opt):
        args = (name, spins, structure)
        UFOBaseClass.__init__(self, *args, **opt)

        global all_lorentz
        all_lorentz.append(self)


all_functions = []

class Function(object):

    def __init__(self, name, arguments, expression):

        global all_functions
        all_functions.append(self)

        self.name = name
        self.arguments = arguments
        self.expr = expression

        def_str = 'def ' + name + '('
        for arg in arguments:
            def_str += arg + ','
        def_str += '):\n\treturn ' + expression

        exec(def_str)

    def __call__(self, *opt):

        return self.fct(*opt)


all_orders = []

class CouplingOrder(object):

    def __init__(self, name, expansion_order, hierarchy, perturbative_expansion = 0):

        global all_orders
        all_orders.append(self)

        self.name = name
        self.expansion_order = expansion_order
        self.hierarchy = hierarchy
        self.perturbative_expansion = perturbative_expansion

all_decays = []

class Decay(UFOBaseClass):
    require_args = ['particle','partial_widths']

    def __init__(self, particle, partial_widths, **opt):
        args = (particle, partial_widths)
        UFOBaseClass.__init__(self, *args, **opt)

        global all_decays
        all_decays.append(self)

        # Add the information directly to the particle
        particle.partial_widths = partial_widths

all_form_factors = []

class FormFactor(UFOBaseClass):
    require_args = ['name','type','value']

    def __init__(self, name, type, value, **opt):
        args = (name, type, value)
        UFOBaseClass.__init__(self, *args, **opt)

        global all_form_factors
        all_form_factors.append(self)

all_propagators = []

class Propagator(UFOBaseClass):

    require_args = ['name','numerator','denominator']

    def __init__(self, name, numerator, denominator=None, **opt):
        args = (name, numerator, denominator)
        UFOBaseClass.__init__(self, *args, **opt)

        global all_propagators
        all_propagators.append(self)
`

// Init is the package __init__.py
const Init = `
import particles
import couplings
import lorentz
import parameters
import vertices
import coupling_orders
import write_param_card
import function_library


all_particles = particles.all_particles
all_vertices = vertices.all_vertices
all_couplings = couplings.all_couplings
all_lorentz = lorentz.all_lorentz
all_parameters = parameters.all_parameters
all_orders = coupling_orders.all_orders
all_functions = function_library.all_functions

gauge = [0]


__author__ = "N. Christensen, C. Duhr, B. Fuks"
__date__ = "21. 11. 2012"
__version__= "1.4.5"
`

// FunctionLibrary declares the helper functions used by parameters
const FunctionLibrary = `# This file is part of the UFO.
#
# This file contains definitions for functions that
# are extensions of the cmath library, and correspond
# either to functions that are in cmath, but inconvenient
# to access from there (e.g. z.conjugate()),
# or functions that are simply not defined.
#
#

from __future__ import absolute_import
__date__ = "22 July 2010"
__author__ = "claude.duhr@durham.ac.uk"

import cmath
from .object_library import all_functions, Function

#
# shortcuts for functions from cmath
#

complexconjugate = Function(name = 'complexconjugate',
                 arguments = ('z',),
                 expression = 'z.conjugate()')


re = Function(name = 're',
              arguments = ('z',),
              expression = 'z.real')

im = Function(name = 'im',
              arguments = ('z',),
              expression = 'z.imag')
`

// WriteParamCard is a trimmed param card writer
const WriteParamCard = `
__date__ = "3 june 2010"
__author__ = 'olivier.mattelaer@uclouvain.be'

class ParamCardWriter(object):

    header = \
    """######################################################################\n""" + \
    """## PARAM_CARD AUTOMATICALY GENERATED BY THE UFO  #####################\n""" + \
    """######################################################################\n"""

    def __init__(self, filename, list_of_parameters=None, generic=False):
        """write a valid param_card.dat"""

        if not list_of_parameters:
            from parameters import all_parameters
            list_of_parameters = [param for param in all_parameters if \
                                                       param.nature=='external']

        self.fsock = open(filename, 'w')
        self.fsock.write(self.header)

    def write_block(self, name):
        """ write a comment for a block"""

        self.fsock.writelines(
        """\n###################################""" + \
        """\n## INFORMATION FOR %s""" % name.upper() +\
        """\n###################################\n"""
         )
        if name!='DECAY':
            self.fsock.write("""Block %s \n""" % name)

if '__main__' == __name__:
    ParamCardWriter('./param_card.dat', generic=True)
    print('write ./param_card.dat')
`

// Parameters declares a single parameter
const Parameters = `# This file was automatically created by FeynRules 2.3.36
# Mathematica version: 12.1.0 for Linux x86 (64-bit) (March 18, 2020)
# Date: Thu 27 Jan 2022 15:02:06



from object_library import all_parameters, Parameter


from function_library import complexconjugate, re, im

# This is a default parameter object representing 0.
ZERO = Parameter(name = 'ZERO',
                 nature = 'internal',
                 type = 'real',
                 value = '0.0',
                 texname = '0')
`

// Particles declares a single BSM scalar
const Particles = `# This file was automatically created by FeynRules 2.3.36
# Mathematica version: 12.1.0 for Linux x86 (64-bit) (March 18, 2020)
# Date: Thu 27 Jan 2022 15:02:06


from __future__ import division
from object_library import all_particles, Particle
import parameters as Param
`

// CouplingOrders declares QED
const CouplingOrders = `# This file was automatically created by FeynRules 2.3.36

from object_library import all_orders, CouplingOrder


QED = CouplingOrder(name = 'QED',
                    expansion_order = 99,
                    hierarchy = 2)
`

// Couplings declares a single coupling
const Couplings = `# This file was automatically created by FeynRules 2.3.36

from object_library import all_couplings, Coupling

from function_library import complexconjugate, re, im



GC_1 = Coupling(name = 'GC_1',
                value = '-6*complex(0,1)*lam',
                order = {'QED':2})
`

// Lorentz declares a single lorentz structure
const Lorentz = `# This file was automatically created by FeynRules 2.3.36

from object_library import all_lorentz, Lorentz

from function_library import complexconjugate, re, im
try:
   import form_factors as ForFac
except ImportError:
   pass


SSS1 = Lorentz(name = 'SSS1',
               spins = [ 1, 1, 1 ],
               structure = '1')
`

// Vertices declares a single vertex
const Vertices = `# This file was automatically created by FeynRules 2.3.36

from object_library import all_vertices, Vertex
import particles as P
import couplings as C
import lorentz as L


V_1 = Vertex(name = 'V_1',
             particles = [ P.S0, P.S0, P.S0 ],
             color = [ '1' ],
             lorentz = [ L.SSS1 ],
             couplings = {(0,0):C.GC_1})
`

// Propagators declares a custom propagator
const Propagators = `# This file was automatically created by FeynRules 2.3.36

from object_library import all_propagators, Propagator


t = Propagator(name = 't',
               numerator = 'complex(0,1)*(P(-1,1)*Gamma(-1,2,1))',
               denominator = "P('mu', id) * P('mu', id) - Mass(id) * Mass(id)")
`

// Decays declares the width of the scalar
const Decays = `# This file was automatically created by FeynRules 2.3.36

from object_library import all_decays, Decay
import particles as P


Decay_S0 = Decay(name = 'Decay_S0',
                 particle = P.S0,
                 partial_widths = {(P.S0,P.S0):'(MS0**2)/(16.*cmath.pi)'})
`

// CTCouplings declares one counter-term coupling
const CTCouplings = `# This file was automatically created by FeynRules 2.3.36

from object_library import all_couplings, Coupling


UVGC_1 = Coupling(name = 'UVGC_1',
                  value = {-1:'-(ee*complex(0,1))/(48.*cmath.pi**2)'},
                  order = {'QED':3})
`

// CTParameters declares one counter-term parameter
const CTParameters = `# This file was automatically created by FeynRules 2.3.36

from object_library import all_CTparameters, CTParameter


logMS0 = CTParameter(name = 'logMS0',
                     type = 'real',
                     value = {0:'cond(MS0,0,cmath.log(MS0**2/MU_R**2))'},
                     texname = 'logMS0')
`

// CTVertices declares one counter-term vertex
const CTVertices = `# This file was automatically created by FeynRules 2.3.36

from object_library import all_vertices, all_CTvertices, Vertex, CTVertex
import particles as P
import CT_couplings as C
import lorentz as L


V_1 = CTVertex(name = 'V_1',
               type = 'UV',
               particles = [ P.S0, P.S0, P.S0 ],
               color = [ '1' ],
               lorentz = [ L.SSS1 ],
               loop_particles = [ [ [P.S0] ] ],
               couplings = {(0,0,0):C.UVGC_1})
`

// ScalarParticle is the single particle of the minimal package
const ScalarParticle = `
S0 = Particle(pdg_code = 9000006,
              name = 'S0',
              antiname = 'S0',
              spin = 1,
              color = 1,
              mass = Param.ZERO,
              width = Param.ZERO,
              texname = 'S0',
              antitexname = 'S0',
              charge = 0,
              GhostNumber = 0,
              LeptonNumber = 0,
              Y = 0)
`

// Files returns the file set of the minimal package, keyed by file name
func Files() map[string]string {
	return map[string]string{
		"__init__.py":         Init,
		"object_library.py":   ObjectLibrary,
		"function_library.py": FunctionLibrary,
		"write_param_card.py": WriteParamCard,
		"parameters.py":       Parameters,
		"particles.py":        ParticlesWith(ScalarParticle),
		"coupling_orders.py":  CouplingOrders,
		"couplings.py":        Couplings,
		"lorentz.py":          Lorentz,
		"vertices.py":         Vertices,
	}
}

// NLOFiles returns the three counter-term modules
func NLOFiles() map[string]string {
	return map[string]string{
		"CT_couplings.py":  CTCouplings,
		"CT_parameters.py": CTParameters,
		"CT_vertices.py":   CTVertices,
	}
}

// ParticlesWith returns a particles.py declaring the given particle
// definitions after the standard imports
func ParticlesWith(defs ...string) string {
	src := Particles
	for _, def := range defs {
		src += def
	}
	return src
}

// WritePackage writes files into dir. An empty source removes the file
// from the set instead of writing it.
func WritePackage(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, src := range files {
		if src == "" {
			continue
		}
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
}

// NewPackage writes the minimal package, with overrides applied, into a
// fresh temporary directory and returns its path
func NewPackage(t testing.TB, overrides map[string]string) string {
	t.Helper()
	files := Files()
	for name, src := range overrides {
		files[name] = src
	}
	dir := filepath.Join(t.TempDir(), "model")
	WritePackage(t, dir, files)
	return dir
}
