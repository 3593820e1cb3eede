package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"latmrg/lattice"
	"latmrg/merit"
	"latmrg/mrg"
	"latmrg/seek"
)

func parseInts(ss []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		x, err := mrg.ParseInt(s)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// Component builds the generator. Rank-1 rules are not generators; use
// Source for them.
func (g *Generator) Component() (*mrg.Component, error) {
	if strings.EqualFold(strings.TrimSpace(g.Type), "awcswb") {
		b, err := mrg.ParseInt(g.Base)
		if err != nil {
			return nil, fmt.Errorf("awcswb base: %w", err)
		}
		mode, err := mrg.ParseLagMode(g.Mode)
		if err != nil {
			return nil, err
		}
		return mrg.NewAWCSWB(b, g.R, g.S, mode)
	}
	kind, err := mrg.ParseKind(g.Type)
	if err != nil {
		return nil, err
	}
	if kind == mrg.Combo {
		parts := make([]*mrg.Component, len(g.Components))
		for i := range g.Components {
			p, err := g.Components[i].Component()
			if err != nil {
				return nil, fmt.Errorf("component %d: %w", i+1, err)
			}
			parts[i] = p
		}
		return mrg.Combine(parts...)
	}
	coeffs, err := parseInts(g.Coefficients)
	if err != nil {
		return nil, err
	}
	if kind == mrg.MWC {
		b, err := mrg.ParseInt(g.Base)
		if err != nil {
			return nil, fmt.Errorf("mwc base: %w", err)
		}
		return mrg.NewMWC(b, coeffs)
	}
	mod, err := mrg.ParseModulus(g.Modulus)
	if err != nil {
		return nil, err
	}
	switch kind {
	case mrg.LCG:
		if len(coeffs) != 1 {
			return nil, fmt.Errorf("lcg: %d multipliers, want 1", len(coeffs))
		}
		var inc *big.Int
		if g.Increment != "" {
			if inc, err = mrg.ParseInt(g.Increment); err != nil {
				return nil, err
			}
		}
		return mrg.NewLCG(mod, coeffs[0], inc)
	case mrg.MMRG:
		mat := make(mrg.Matrix, len(g.Matrix))
		for i, row := range g.Matrix {
			if mat[i], err = parseInts(strings.Fields(row)); err != nil {
				return nil, fmt.Errorf("matrix row %d: %w", i+1, err)
			}
		}
		return mrg.NewMMRG(mod, mat)
	}
	return mrg.NewMRG(mod, coeffs)
}

// Source builds the lattice source: a generator, or a Korobov or rank-1
// lattice rule.
func (g *Generator) Source() (lattice.Source, error) {
	switch strings.ToLower(g.Type) {
	case "korobov", "rank1":
		n, err := mrg.ParseInt(g.Modulus)
		if err != nil {
			return nil, err
		}
		z, err := parseInts(g.Coefficients)
		if err != nil {
			return nil, err
		}
		if strings.ToLower(g.Type) == "rank1" {
			return lattice.Rank1{N: n, Z: z}, nil
		}
		if len(z) != 1 {
			return nil, errors.New("korobov: exactly one multiplier expected")
		}
		return lattice.Korobov{N: n, A: z[0]}, nil
	}
	return g.Component()
}

// Decomp converts the period section.
func (p *Period) Decomp() mrg.DecompOptions {
	return mrg.DecompOptions{M1File: p.M1File, RFile: p.RFile, RPrime: p.RPrime}
}

// FigureOfMerit converts the test section.
func (t *Test) FigureOfMerit() (*merit.FigureOfMerit, error) {
	test, err := merit.NewTest(merit.TestOptions{
		Type:       t.Type,
		Norm:       t.Norm,
		Normalizer: t.Normalizer,
		Primal:     t.Primal,
		Alpha:      t.Alpha,
		Delta:      t.Delta,
		Prec:       t.Prec,
		MaxNodes:   t.MaxNodes,
	})
	if err != nil {
		return nil, err
	}
	fom := &merit.FigureOfMerit{T: append([]int(nil), t.Dims...), Test: test, FromDim: t.FromDim, Stationary: t.Stationary}
	if len(t.Lacunary) > 0 {
		lac, err := parseInts(t.Lacunary)
		if err != nil {
			return nil, err
		}
		fom.Lacunary = make([]int64, len(lac))
		for i, x := range lac {
			if !x.IsInt64() {
				return nil, fmt.Errorf("lacunary index %s out of range", x)
			}
			fom.Lacunary[i] = x.Int64()
		}
	}
	if err := fom.Validate(); err != nil {
		return nil, err
	}
	return fom, nil
}

// SearchConfig converts a seek document.
func (d *Seek) SearchConfig() (*seek.Config, error) {
	mod, err := mrg.ParseModulus(d.Modulus)
	if err != nil {
		return nil, err
	}
	method, err := seek.ParseMethod(d.Method)
	if err != nil {
		return nil, err
	}
	cond, err := seek.ParseCond(d.Cond)
	if err != nil {
		return nil, err
	}
	fom, err := d.Test.FigureOfMerit()
	if err != nil {
		return nil, err
	}
	cfg := &seek.Config{
		Modulus:   mod,
		K:         d.Order,
		Method:    method,
		Cond:      cond,
		MaxPeriod: d.Period.Check,
		Decomp:    d.Period.Decomp(),
		NumGen:    d.NumGen,
		Tries:     d.Tries,
		Seed:      d.Seed,
		Workers:   d.Workers,
		FOM:       *fom,
	}
	for i, b := range d.Bounds {
		lo, err := mrg.ParseInt(b.Lo)
		if err != nil {
			return nil, fmt.Errorf("bound %d: %w", i+1, err)
		}
		hi, err := mrg.ParseInt(b.Hi)
		if err != nil {
			return nil, fmt.Errorf("bound %d: %w", i+1, err)
		}
		cfg.Bounds = append(cfg.Bounds, seek.Bound{Lo: lo, Hi: hi})
	}
	for i := range d.Fixed {
		c, err := d.Fixed[i].Component()
		if err != nil {
			return nil, fmt.Errorf("fixed component %d: %w", i+1, err)
		}
		cfg.Fixed = append(cfg.Fixed, c)
	}
	return cfg, nil
}
