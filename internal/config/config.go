// Package config reads the documents that drive the latmrg commands.
//
// A document is YAML, JSON or XML, chosen by the file extension. Big
// integers are strings accepting decimal, 0x-hex and b^e+c forms. The
// same structure is used by all three formats:
//
//	generator:
//	  type: mrg
//	  modulus: 2^31-1
//	  coefficients: ["1071064", "0", "0", "0", "0", "0", "2113664"]
//	test:
//	  dims: [32, 24, 16]
//
// or, in XML, <lattest><generator type="mrg" modulus="2^31-1"><a>1071064</a>...
package config

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Generator describes one generator or lattice rule.
type Generator struct {
	// Type is lcg, mrg, mmrg, mwc, awcswb, combo, korobov or rank1.
	Type    string `yaml:"type" json:"type" xml:"type,attr"`
	Modulus string `yaml:"modulus,omitempty" json:"modulus,omitempty" xml:"modulus,attr,omitempty"`
	// Coefficients are a_1..a_k, the multiplier of a Korobov rule or the
	// generating vector of a rank-1 rule.
	Coefficients []string `yaml:"coefficients,omitempty" json:"coefficients,omitempty" xml:"a"`
	Increment    string   `yaml:"increment,omitempty" json:"increment,omitempty" xml:"increment,attr,omitempty"`
	// Matrix rows of a matrix MRG, entries separated by spaces.
	Matrix []string `yaml:"matrix,omitempty" json:"matrix,omitempty" xml:"row"`
	// Base and Coefficients e_0..e_r of a multiply-with-carry generator.
	Base string `yaml:"base,omitempty" json:"base,omitempty" xml:"base,attr,omitempty"`
	// Lags r, s and Mode (awc, awc-c, swb-i, swb-ii) of an AWC/SWB
	// generator of base Base.
	R          int         `yaml:"r,omitempty" json:"r,omitempty" xml:"r,attr,omitempty"`
	S          int         `yaml:"s,omitempty" json:"s,omitempty" xml:"s,attr,omitempty"`
	Mode       string      `yaml:"mode,omitempty" json:"mode,omitempty" xml:"mode,attr,omitempty"`
	Components []Generator `yaml:"components,omitempty" json:"components,omitempty" xml:"component"`
}

// Period says whether and how to check for a maximal period.
type Period struct {
	Check  bool   `yaml:"check" json:"check" xml:"check,attr"`
	M1File string `yaml:"m1_file,omitempty" json:"m1_file,omitempty" xml:"m1file,attr,omitempty"`
	RFile  string `yaml:"r_file,omitempty" json:"r_file,omitempty" xml:"rfile,attr,omitempty"`
	RPrime bool   `yaml:"r_prime,omitempty" json:"r_prime,omitempty" xml:"rprime,attr,omitempty"`
}

// Test describes the lattice test and the figure of merit.
type Test struct {
	Type       string  `yaml:"type" json:"type" xml:"type,attr"`
	Norm       string  `yaml:"norm,omitempty" json:"norm,omitempty" xml:"norm,attr,omitempty"`
	Normalizer string  `yaml:"normalizer,omitempty" json:"normalizer,omitempty" xml:"normalizer,attr,omitempty"`
	Primal     bool    `yaml:"primal,omitempty" json:"primal,omitempty" xml:"primal,attr,omitempty"`
	Alpha      int     `yaml:"alpha,omitempty" json:"alpha,omitempty" xml:"alpha,attr,omitempty"`
	Delta      float64 `yaml:"delta,omitempty" json:"delta,omitempty" xml:"delta,attr,omitempty"`
	Prec       uint    `yaml:"prec,omitempty" json:"prec,omitempty" xml:"prec,attr,omitempty"`
	MaxNodes   int64   `yaml:"max_nodes,omitempty" json:"max_nodes,omitempty" xml:"maxnodes,attr,omitempty"`
	// Dims is t_1, t_2, ..., t_d.
	Dims       []int    `yaml:"dims" json:"dims" xml:"dim"`
	FromDim    int      `yaml:"from_dim,omitempty" json:"from_dim,omitempty" xml:"fromdim,attr,omitempty"`
	Stationary bool     `yaml:"stationary,omitempty" json:"stationary,omitempty" xml:"stationary,attr,omitempty"`
	Lacunary   []string `yaml:"lacunary,omitempty" json:"lacunary,omitempty" xml:"lag"`
}

// Output names where results go. Empty fields are skipped; Report "-" is
// standard output.
type Output struct {
	Report string `yaml:"report,omitempty" json:"report,omitempty" xml:"report,attr,omitempty"`
	Chart  string `yaml:"chart,omitempty" json:"chart,omitempty" xml:"chart,attr,omitempty"`
	Store  string `yaml:"store,omitempty" json:"store,omitempty" xml:"store,attr,omitempty"`
}

// Lattest is the document of the lattest command.
type Lattest struct {
	XMLName   xml.Name  `yaml:"-" json:"-" xml:"lattest"`
	Generator Generator `yaml:"generator" json:"generator" xml:"generator"`
	Period    Period    `yaml:"period" json:"period" xml:"period"`
	Test      Test      `yaml:"test" json:"test" xml:"test"`
	Output    Output    `yaml:"output" json:"output" xml:"output"`
}

// Bound is the inclusive range of one searched multiplier.
type Bound struct {
	Lo string `yaml:"lo" json:"lo" xml:"lo,attr"`
	Hi string `yaml:"hi" json:"hi" xml:"hi,attr"`
}

// Seek is the document of the seek command.
type Seek struct {
	XMLName xml.Name `yaml:"-" json:"-" xml:"seek"`
	Modulus string   `yaml:"modulus" json:"modulus" xml:"modulus,attr"`
	Order   int      `yaml:"order" json:"order" xml:"order,attr"`
	Bounds  []Bound  `yaml:"bounds,omitempty" json:"bounds,omitempty" xml:"bound"`
	// Method is random or exhaustive.
	Method string `yaml:"method,omitempty" json:"method,omitempty" xml:"method,attr,omitempty"`
	// Cond is none, appfact or power2.
	Cond    string      `yaml:"cond,omitempty" json:"cond,omitempty" xml:"cond,attr,omitempty"`
	Period  Period      `yaml:"period" json:"period" xml:"period"`
	Fixed   []Generator `yaml:"fixed,omitempty" json:"fixed,omitempty" xml:"fixed"`
	NumGen  int         `yaml:"num_gen,omitempty" json:"num_gen,omitempty" xml:"numgen,attr,omitempty"`
	Tries   int64       `yaml:"tries,omitempty" json:"tries,omitempty" xml:"tries,attr,omitempty"`
	Seed    string      `yaml:"seed,omitempty" json:"seed,omitempty" xml:"seed,attr,omitempty"`
	Workers int         `yaml:"workers,omitempty" json:"workers,omitempty" xml:"workers,attr,omitempty"`
	Test    Test        `yaml:"test" json:"test" xml:"test"`
	Output  Output      `yaml:"output" json:"output" xml:"output"`
}

// LoadLattest reads a lattest document.
func LoadLattest(path string) (*Lattest, error) {
	var doc Lattest
	if err := decodeFile(path, &doc); err != nil {
		return nil, err
	}
	doc.applyDefaults()
	if err := doc.expandPaths(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadSeek reads a seek document.
func LoadSeek(path string) (*Seek, error) {
	var doc Seek
	if err := decodeFile(path, &doc); err != nil {
		return nil, err
	}
	doc.applyDefaults()
	if err := doc.expandPaths(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func decodeFile(path string, v any) error {
	p, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	case ".json":
		err = json.Unmarshal(data, v)
	case ".xml":
		err = xml.Unmarshal(data, v)
	default:
		return fmt.Errorf("config %s: unknown extension, want .yaml, .json or .xml", path)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (t *Test) applyDefaults() {
	if t.Type == "" {
		t.Type = "spectral"
	}
	if len(t.Dims) == 0 {
		t.Dims = []int{8}
	}
}

func (d *Lattest) applyDefaults() {
	d.Test.applyDefaults()
	if d.Output.Report == "" {
		d.Output.Report = "-"
	}
}

func (d *Seek) applyDefaults() {
	d.Test.applyDefaults()
	if d.Method == "" {
		d.Method = "random"
	}
	if d.NumGen == 0 {
		d.NumGen = 10
	}
	if d.Tries == 0 && d.Method == "random" {
		d.Tries = 1000
	}
	if d.Output.Report == "" {
		d.Output.Report = "-"
	}
}

func expand(paths ...*string) error {
	for _, p := range paths {
		if *p == "" || *p == "-" {
			continue
		}
		e, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		*p = e
	}
	return nil
}

func (d *Lattest) expandPaths() error {
	return expand(&d.Period.M1File, &d.Period.RFile, &d.Output.Report, &d.Output.Chart, &d.Output.Store)
}

func (d *Seek) expandPaths() error {
	return expand(&d.Period.M1File, &d.Period.RFile, &d.Output.Report, &d.Output.Chart, &d.Output.Store)
}
