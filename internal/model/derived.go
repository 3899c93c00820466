package model

// PDGLike is a particle whose code contradicts its declared spin or charge
type PDGLike struct {
	ID     int     `json:"id"`
	Spin   int     `json:"spin"`
	Charge float64 `json:"charge"`
}

// Derived is the metadata read off a package's content tables. Particle
// maps are keyed by declared particle name.
type Derived struct {
	Parameters     int
	Vertices       int
	CouplingOrders int
	Couplings      int
	Lorentz        int
	Propagators    int
	Decays         int
	NLO            bool

	AllParticles map[string]int
	SM           map[string]int
	BSM          map[string]int
	PDGLike      map[string]PDGLike
	Unclassified map[string]int
}

// NewDerived returns a Derived with empty particle maps
func NewDerived() *Derived {
	return &Derived{
		AllParticles: make(map[string]int),
		SM:           make(map[string]int),
		BSM:          make(map[string]int),
		PDGLike:      make(map[string]PDGLike),
		Unclassified: make(map[string]int),
	}
}
