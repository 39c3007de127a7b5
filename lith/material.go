package lith

import "sort"

// OpticalEntry is a single tabulated (name, wavelength) -> (n, k) row.
type OpticalEntry struct {
	Name string
	Wavelength float64 // nm
	N          float64
	K          float64
}

// MaterialDB is an optical table keyed by material name. The kernel only
// reads it; AddSubstrate and AddARC are its only mutators. It is not a
// process-wide singleton: each NewMaterialDB or DefaultMaterialDB call
// builds a separate table. The zero value is not usable.
type MaterialDB struct {
	substrates map[string][]OpticalEntry
	arcs       map[string][]OpticalEntry
	arcKind    map[string]string // arc name -> "interference"|"absorbing"|"hybrid"
}

// defaultARCEfficiency is the hard-coded, documented per-kind ARC efficiency η
// used in the reflectance-reduction formula. The source values bear no
// physical derivation; they are retained verbatim (see open questions)
// with an override hook below.
var defaultARCEfficiency = map[string]float64{
	"interference": 0.90,
	"absorbing":    0.70,
	"hybrid":       0.95,
}

// ARCEfficiencyOverride lets a caller replace the efficiency used for a
// named ARC kind ("interference", "absorbing", "hybrid") without
// recompiling. Consulted before defaultARCEfficiency. Not goroutine-safe
// to mutate concurrently with Simulate calls; set it once at startup.
var ARCEfficiencyOverride = map[string]float64{}

func arcEfficiency(kind string) float64 {
	if v, ok := ARCEfficiencyOverride[kind]; ok {
		return v
	}
	if v, ok := defaultARCEfficiency[kind]; ok {
		return v
	}
	return 0
}

// NResistDefault is the fixed nominal photoresist refractive index used
// throughout the ARC transmission-factor derivation.
const NResistDefault = 1.7

// NewMaterialDB builds an empty database; use DefaultMaterialDB for the
// documented 193/248/405 nm table.
func NewMaterialDB() *MaterialDB {
	return &MaterialDB{
		substrates: make(map[string][]OpticalEntry),
		arcs:       make(map[string][]OpticalEntry),
		arcKind:    make(map[string]string),
	}
}

// AddSubstrate registers a (substrate, wavelength) -> (n,k) row.
func (db *MaterialDB) AddSubstrate(e OpticalEntry) {
	db.substrates[e.Name] = appendSorted(db.substrates[e.Name], e)
}

// AddARC registers a (arc, wavelength) -> (n,k) row and its type tag.
func (db *MaterialDB) AddARC(e OpticalEntry, kind string) {
	db.arcs[e.Name] = appendSorted(db.arcs[e.Name], e)
	db.arcKind[e.Name] = kind
}

func appendSorted(rows []OpticalEntry, e OpticalEntry) []OpticalEntry {
	rows = append(rows, e)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Wavelength < rows[j].Wavelength })
	return rows
}

// lookup finds the (n,k) for name at wavelength, falling back to the
// nearest tabulated wavelength. Returns ok=false for an unknown name.
func lookup(rows []OpticalEntry, wavelength float64) (OpticalEntry, bool) {
	if len(rows) == 0 {
		return OpticalEntry{}, false
	}
	best := rows[0]
	bestDiff := abs(rows[0].Wavelength - wavelength)
	for _, r := range rows[1:] {
		d := abs(r.Wavelength - wavelength)
		if d < bestDiff {
			best, bestDiff = r, d
		}
	}
	return best, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// DefaultMaterialDB returns the documented reference table: substrates
// and ARC materials tabulated at 193, 248, and 405 nm.
func DefaultMaterialDB() *MaterialDB {
	db := NewMaterialDB()

	// Substrates.
	db.AddSubstrate(OpticalEntry{Name: "silicon", Wavelength: 193, N: 0.88, K: 2.78})
	db.AddSubstrate(OpticalEntry{Name: "silicon", Wavelength: 248, N: 1.57, K: 3.57})
	db.AddSubstrate(OpticalEntry{Name: "silicon", Wavelength: 405, N: 4.15, K: 0.09})

	db.AddSubstrate(OpticalEntry{Name: "silicon_dioxide", Wavelength: 193, N: 1.56, K: 0})
	db.AddSubstrate(OpticalEntry{Name: "silicon_dioxide", Wavelength: 248, N: 1.51, K: 0})
	db.AddSubstrate(OpticalEntry{Name: "silicon_dioxide", Wavelength: 405, N: 1.47, K: 0})

	db.AddSubstrate(OpticalEntry{Name: "silicon_nitride", Wavelength: 193, N: 2.56, K: 0.01})
	db.AddSubstrate(OpticalEntry{Name: "silicon_nitride", Wavelength: 248, N: 2.15, K: 0.001})
	db.AddSubstrate(OpticalEntry{Name: "silicon_nitride", Wavelength: 405, N: 2.02, K: 0})

	db.AddSubstrate(OpticalEntry{Name: "none", Wavelength: 193, N: 1, K: 0})
	db.AddSubstrate(OpticalEntry{Name: "none", Wavelength: 248, N: 1, K: 0})
	db.AddSubstrate(OpticalEntry{Name: "none", Wavelength: 405, N: 1, K: 0})

	// ARC materials.
	db.AddARC(OpticalEntry{Name: "SiON", Wavelength: 193, N: 1.83, K: 0.45}, "interference")
	db.AddARC(OpticalEntry{Name: "SiON", Wavelength: 248, N: 1.79, K: 0.25}, "interference")
	db.AddARC(OpticalEntry{Name: "SiON", Wavelength: 405, N: 1.75, K: 0.02}, "interference")

	db.AddARC(OpticalEntry{Name: "organic_barc", Wavelength: 193, N: 1.62, K: 0.38}, "absorbing")
	db.AddARC(OpticalEntry{Name: "organic_barc", Wavelength: 248, N: 1.58, K: 0.22}, "absorbing")
	db.AddARC(OpticalEntry{Name: "organic_barc", Wavelength: 405, N: 1.55, K: 0.01}, "absorbing")

	db.AddARC(OpticalEntry{Name: "hybrid_arc", Wavelength: 193, N: 1.70, K: 0.30}, "hybrid")
	db.AddARC(OpticalEntry{Name: "hybrid_arc", Wavelength: 248, N: 1.68, K: 0.15}, "hybrid")
	db.AddARC(OpticalEntry{Name: "hybrid_arc", Wavelength: 405, N: 1.65, K: 0.01}, "hybrid")

	db.AddARC(OpticalEntry{Name: "none", Wavelength: 193, N: 1, K: 0}, "none")
	db.AddARC(OpticalEntry{Name: "none", Wavelength: 248, N: 1, K: 0}, "none")
	db.AddARC(OpticalEntry{Name: "none", Wavelength: 405, N: 1, K: 0}, "none")

	return db
}

// ARCParams is the derived record of §3: the reflectance and
// transmission factor for one (substrate, arc, wavelength) triple.
type ARCParams struct {
	NResist          float64
	NSubstrate       float64
	KSubstrate       float64
	NArc             float64
	KArc             float64
	ReflectanceNoARC float64
	ReflectanceWith  float64
	Efficiency       float64
	TransmissionFactor float64
}

// ARCParamsFor derives the ARCParams record for (substrate, arc, λ).
// Unknown names degrade to a "none" entry (n=1, k=0, efficiency 0). The
// factor is floored above zero but not capped at 1: a contrast-enhancing
// ARC geometry can legitimately push it above unity.
func (db *MaterialDB) ARCParamsFor(substrate, arc string, wavelengthNM float64) ARCParams {
	subEntry, ok := lookup(db.substrates[substrate], wavelengthNM)
	if !ok {
		subEntry = OpticalEntry{Name: "none", N: 1, K: 0}
	}
	arcEntry, ok := lookup(db.arcs[arc], wavelengthNM)
	if !ok {
		arcEntry = OpticalEntry{Name: "none", N: 1, K: 0}
	}
	kind := db.arcKind[arc]
	if kind == "" {
		kind = "none"
	}

	p := ARCParams{
		NResist:    NResistDefault,
		NSubstrate: subEntry.N,
		KSubstrate: subEntry.K,
		NArc:       arcEntry.N,
		KArc:       arcEntry.K,
		Efficiency: arcEfficiency(kind),
	}

	num := p.NResist - p.NSubstrate
	den := p.NResist + p.NSubstrate
	if den == 0 {
		p.ReflectanceNoARC = 0
	} else {
		p.ReflectanceNoARC = (num / den) * (num / den)
	}

	p.ReflectanceWith = p.ReflectanceNoARC * (1 - p.Efficiency)

	if p.ReflectanceNoARC == 0 {
		p.TransmissionFactor = 1.0
	} else {
		p.TransmissionFactor = (1 - p.ReflectanceWith) / (1 - p.ReflectanceNoARC)
	}
	if p.TransmissionFactor <= 0 {
		p.TransmissionFactor = 1e-9
	}
	if p.TransmissionFactor > 1 {
		// Contrast-enhancing ARC geometries can raise the factor above 1
		// (see scenario 5); no upper clamp is applied.
	}
	return p
}
