package main

import (
	"errors"
	"fmt"
	"math/big"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"latmrg/internal/logger"
	"latmrg/mrg"
	"latmrg/primes"
)

var maxPeriodCmd = &cobra.Command{
	Use:   "maxperiod <modulus> <a1> [a2 ...]",
	Short: "Check whether an LCG or MRG has maximal period",
	Long: `Check whether the MRG x_n = a1 x_{n-1} + ... + ak x_{n-k} mod m has maximal
period. With one multiplier and an increment, the generator is the LCG
x_n = a x_{n-1} + c mod m and the Hull-Dobell conditions are checked.
Moduli accept the forms 2^31-1, 0x7fffffff or 2147483647.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mod, err := mrg.ParseModulus(args[0])
		if err != nil {
			return err
		}
		a := make([]*big.Int, len(args)-1)
		for i, s := range args[1:] {
			if a[i], err = mrg.ParseInt(s); err != nil {
				return err
			}
		}
		flags := cmd.Flags()
		incStr, _ := flags.GetString("increment")
		var c *mrg.Component
		if incStr != "" {
			if len(a) != 1 {
				return errors.New("an increment needs exactly one multiplier")
			}
			inc, err := mrg.ParseInt(incStr)
			if err != nil {
				return err
			}
			c, err = mrg.NewLCG(mod, a[0], inc)
			if err != nil {
				return err
			}
		} else if c, err = mrg.NewMRG(mod, a); err != nil {
			return err
		}
		var opts mrg.DecompOptions
		opts.M1File, _ = flags.GetString("m1-file")
		opts.RFile, _ = flags.GetString("r-file")
		opts.RPrime, _ = flags.GetBool("r-prime")

		p, err := checkPeriod(cmd.Context(), c, opts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, c)
		if p.Max {
			fmt.Fprintf(out, "maximal period: yes, rho = %s\n", p.Length)
		} else {
			fmt.Fprintln(out, "maximal period: no")
		}
		return nil
	},
}

var factorCmd = &cobra.Command{
	Use:   "factor <n> [n ...]",
	Short: "Factor integers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, s := range args {
			n, err := mrg.ParseInt(s)
			if err != nil {
				return err
			}
			f, err := primes.Factorize(cmd.Context(), n)
			if errors.Is(err, primes.ErrIncomplete) {
				logger.L().Warn("factorization incomplete", "n", n)
			} else if err != nil {
				return err
			}
			fmt.Fprint(out, f)
		}
		return nil
	},
}

var findPrimesCmd = &cobra.Command{
	Use:   "findprimes",
	Short: "Find primes close to 2^e",
	Long: `Find primes m close to 2^e, going down from 2^e-1 or, with --c1 and --c2,
inside 2^e+c1 <= m <= 2^e+c2. With --k > 1 the ratio r = (m^k-1)/(m-1) must
also be prime, as needed by a maximal-period MRG of order k. With --safe,
(m-1)/2 must be prime.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var opts primes.FinderOptions
		opts.E, _ = flags.GetInt("e")
		opts.C1, _ = flags.GetInt64("c1")
		opts.C2, _ = flags.GetInt64("c2")
		opts.HasRange = flags.Changed("c1") || flags.Changed("c2")
		opts.K, _ = flags.GetInt("k")
		opts.Safe, _ = flags.GetBool("safe")
		opts.Count, _ = flags.GetInt("count")
		opts.Factor, _ = flags.GetBool("factor")

		found, err := primes.FindPrimes(cmd.Context(), opts)
		if err != nil && len(found) == 0 {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "m\tm - 2^e\tstatus\tm-1")
		for _, f := range found {
			m1 := ""
			if f.M1 != nil {
				m1 = factorLine(f.M1)
			}
			status := f.Status.String()
			if opts.K > 1 {
				status += ", r " + f.RStat.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.M, f.Diff, status, m1)
		}
		if ferr := tw.Flush(); ferr != nil {
			return ferr
		}
		return err
	},
}

var mwcCmd = &cobra.Command{
	Use:   "mwc <b> <e0> [e1 ...]",
	Short: "Show the LCG equivalent to a multiply-with-carry generator",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := mrg.ParseInt(args[0])
		if err != nil {
			return err
		}
		e := make([]*big.Int, len(args)-1)
		for i, s := range args[1:] {
			if e[i], err = mrg.ParseInt(s); err != nil {
				return err
			}
		}
		c, err := mrg.NewMWC(b, e)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "m = %s\na = %s\n", c.Modulus(), c.A[0])
		if check, _ := cmd.Flags().GetBool("period"); check {
			p, err := checkPeriod(cmd.Context(), c, mrg.DecompOptions{})
			if err != nil {
				return err
			}
			if p.Max {
				fmt.Fprintf(out, "maximal period: yes, rho = %s\n", p.Length)
			} else {
				fmt.Fprintln(out, "maximal period: no")
			}
		}
		return nil
	},
}

var primitiveCmd = &cobra.Command{
	Use:   "primitive <p> [a ...]",
	Short: "Test or find primitive roots modulo a prime",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := mrg.ParseInt(args[0])
		if err != nil {
			return err
		}
		pi, err := primes.NewPrimitiveInt(cmd.Context(), p)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range args[1:] {
			a, err := mrg.ParseInt(s)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %t\n", a, pi.IsPrimitiveElement(a))
		}
		n, _ := cmd.Flags().GetInt("find")
		one := big.NewInt(1)
		for a := big.NewInt(2); n > 0 && a.Cmp(p) < 0; a.Add(a, one) {
			if pi.IsPrimitiveElement(a) {
				fmt.Fprintln(out, a)
				n--
			}
		}
		return nil
	},
}

func factorLine(f *primes.Factorization) string {
	s := ""
	for i, x := range f.Factors {
		if i > 0 {
			s += " * "
		}
		s += x.P.String()
		if x.Mult > 1 {
			s += fmt.Sprintf("^%d", x.Mult)
		}
	}
	return s
}

func init() {
	f := maxPeriodCmd.Flags()
	f.String("increment", "", "LCG increment c")
	f.String("m1-file", "", "file with the factorization of m-1")
	f.String("r-file", "", "file with the factorization of r = (m^k-1)/(m-1)")
	f.Bool("r-prime", false, "assume r is prime")

	f = findPrimesCmd.Flags()
	f.Int("e", 31, "exponent e")
	f.Int64("c1", 0, "lower offset from 2^e")
	f.Int64("c2", 0, "upper offset from 2^e")
	f.Int("k", 1, "order k of the MRG")
	f.Bool("safe", false, "require (m-1)/2 prime")
	f.Int("count", 5, "number of primes wanted")
	f.Bool("factor", false, "print the factorization of m-1")

	mwcCmd.Flags().Bool("period", false, "also check the period of the equivalent LCG")
	primitiveCmd.Flags().Int("find", 0, "print the n smallest primitive roots")
}
