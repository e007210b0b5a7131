package interfaces

// Provenance identifies which file a structure came from, plus whatever
// auxiliary data the backend produced. It is a closed union; the concrete
// types are FileProvenance, PwscfProvenance, Wien2kProvenance and
// ElkProvenance.
type Provenance interface {
	// Path is the structure file that was sought.
	Path() string
	// Describe is the user-facing file description.
	Describe() string
	provenance()
}

// Source is the part shared by every provenance variant.
type Source struct {
	File string
	// DefaultName is set when the file name came from the default table
	// rather than from the caller.
	DefaultName bool
}

// Path implements Provenance.
func (s Source) Path() string { return s.File }

// Describe implements Provenance.
func (s Source) Describe() string {
	if s.DefaultName {
		return s.File + " (default file name)"
	}
	return s.File
}

func (Source) provenance() {}

// FileProvenance is used by vasp, abinit, the YAML reader and failed loads.
type FileProvenance struct {
	Source
}

// Pseudopotential pairs a species with its pseudopotential file.
type Pseudopotential struct {
	Symbol string
	Mass   float64
	File   string
}

// PwscfProvenance carries the ATOMIC_SPECIES pseudopotentials.
type PwscfProvenance struct {
	Source
	Pseudopotentials []Pseudopotential
}

// Files returns the pseudopotential file names in species order.
func (p PwscfProvenance) Files() []string {
	files := make([]string, len(p.Pseudopotentials))
	for i, pp := range p.Pseudopotentials {
		files[i] = pp.File
	}
	return files
}

// Wien2kProvenance carries the radial mesh settings of each inequivalent atom.
type Wien2kProvenance struct {
	Source
	NPTs []int
	R0s  []float64
	RMTs []float64
}

// ElkProvenance carries the species files named in the atoms block.
type ElkProvenance struct {
	Source
	SpeciesFiles []string
}
