package skymodel

import (
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
)

// Component is a single point of emission: a direction plus a spectrum.
type Component struct {
	Name      string
	Direction dataset.Direction
	Spectrum  Spectrum
}

// Source is a named catalog entry. A simple source has one component; a
// composite source (e.g. a double) has several, and its predicted
// visibilities are the sum over components.
type Source struct {
	Name       string
	Components []Component
}

// Flux returns the total Stokes flux of the source at frequency ν.
func (s Source) Flux(freq float64) Stokes {
	var total Stokes
	for _, c := range s.Components {
		f := c.Spectrum.At(freq)
		total.I += f.I
		total.Q += f.Q
		total.U += f.U
		total.V += f.V
	}
	return total
}

// catalog mirrors the TOML file layout.
type catalog struct {
	Sources []catalogSource `toml:"sources"`
}

type catalogSource struct {
	Name       string          `toml:"name"`
	RA         string          `toml:"ra"`
	Dec        string          `toml:"dec"`
	Flux       []float64       `toml:"flux"`
	Freq       float64         `toml:"freq"`
	Index      []float64       `toml:"index"`
	Components []catalogSource `toml:"components"`
}

// Load reads a TOML sky catalog from path. Source order is preserved:
// peeling order is a property of the catalog, not of the code that
// consumes it.
func Load(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "sky catalog %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeUnreadableFile, err, "sky catalog %s", path)
	}
	var cat catalog
	if err := toml.Unmarshal(data, &cat); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "parse sky catalog %s", path)
	}
	if len(cat.Sources) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidCatalog, "sky catalog %s has no sources", path)
	}

	sources := make([]Source, 0, len(cat.Sources))
	for _, cs := range cat.Sources {
		src, err := cs.toSource()
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (cs catalogSource) toSource() (Source, error) {
	if err := errors.ValidateSourceName(cs.Name); err != nil {
		return Source{}, err
	}
	src := Source{Name: cs.Name}
	if len(cs.Components) == 0 {
		comp, err := cs.toComponent(cs.Name)
		if err != nil {
			return Source{}, err
		}
		src.Components = []Component{comp}
		return src, nil
	}
	for i, cc := range cs.Components {
		name := cc.Name
		if name == "" {
			name = cs.Name + "/" + strconv.Itoa(i)
		}
		comp, err := cc.toComponent(name)
		if err != nil {
			return Source{}, err
		}
		src.Components = append(src.Components, comp)
	}
	return src, nil
}

func (cs catalogSource) toComponent(name string) (Component, error) {
	ra, err := ParseRA(cs.RA)
	if err != nil {
		return Component{}, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "source %q right ascension", name)
	}
	dec, err := ParseDec(cs.Dec)
	if err != nil {
		return Component{}, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "source %q declination", name)
	}
	if len(cs.Flux) != 4 {
		return Component{}, errors.New(errors.ErrCodeInvalidCatalog, "source %q flux must have 4 Stokes entries, got %d", name, len(cs.Flux))
	}
	if cs.Freq <= 0 {
		return Component{}, errors.New(errors.ErrCodeInvalidCatalog, "source %q reference frequency must be positive, got %v", name, cs.Freq)
	}
	return Component{
		Name:      name,
		Direction: dataset.Direction{RA: ra, Dec: dec},
		Spectrum: Spectrum{
			Flux:    Stokes{I: cs.Flux[0], Q: cs.Flux[1], U: cs.Flux[2], V: cs.Flux[3]},
			RefFreq: cs.Freq,
			Index:   append([]float64(nil), cs.Index...),
		},
	}, nil
}

var (
	raPattern  = regexp.MustCompile(`^([0-9]{1,2})h([0-9]{1,2})m([0-9]+(?:\.[0-9]*)?)s$`)
	decPattern = regexp.MustCompile(`^([+-]?)([0-9]{1,2})d([0-9]{1,2})m([0-9]+(?:\.[0-9]*)?)s$`)
)

// ParseRA parses a sexagesimal right ascension like "19h59m28.35663s"
// into radians.
func ParseRA(s string) (float64, error) {
	m := raPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, errors.New(errors.ErrCodeInvalidCatalog, "cannot parse right ascension %q (want e.g. 19h59m28.3s)", s)
	}
	hours, _ := strconv.ParseFloat(m[1], 64)
	minutes, _ := strconv.ParseFloat(m[2], 64)
	seconds, _ := strconv.ParseFloat(m[3], 64)
	if hours >= 24 || minutes >= 60 || seconds >= 60 {
		return 0, errors.New(errors.ErrCodeInvalidCatalog, "right ascension %q out of range", s)
	}
	return (hours + minutes/60 + seconds/3600) * math.Pi / 12, nil
}

// ParseDec parses a sexagesimal declination like "+40d44m02.0970s" into
// radians.
func ParseDec(s string) (float64, error) {
	m := decPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, errors.New(errors.ErrCodeInvalidCatalog, "cannot parse declination %q (want e.g. +40d44m02.1s)", s)
	}
	degrees, _ := strconv.ParseFloat(m[2], 64)
	minutes, _ := strconv.ParseFloat(m[3], 64)
	seconds, _ := strconv.ParseFloat(m[4], 64)
	if degrees > 90 || minutes >= 60 || seconds >= 60 {
		return 0, errors.New(errors.ErrCodeInvalidCatalog, "declination %q out of range", s)
	}
	dec := (degrees + minutes/60 + seconds/3600) * math.Pi / 180
	if m[1] == "-" {
		dec = -dec
	}
	if dec > math.Pi/2 {
		return 0, errors.New(errors.ErrCodeInvalidCatalog, "declination %q out of range", s)
	}
	return dec, nil
}
