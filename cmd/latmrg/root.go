package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"latmrg/internal/logger"
)

var (
	cfgFile       string
	loggerCleanup func() error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "latmrg",
	Short: "Lattice analysis of linear pseudorandom generators.",
	Long: `Lattice analysis of linear pseudorandom generators.

Check maximal periods of LCGs, MRGs, matrix MRGs, MWC and combined
generators, compute figures of merit based on the spectral test, and search
for good multipliers. For example:
  latmrg maxperiod 2^31-1 16807
  latmrg lattest mrg32k3a.yaml --chart merit.html
  latmrg seek search.xml --store results.db
  latmrg findprimes --e 31 --count 5 --safe`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format := viper.GetString("log-format")
		if format == "" {
			format = "json"
			if term.IsTerminal(int(os.Stderr.Fd())) {
				format = "text"
			}
		}
		file, err := homedir.Expand(viper.GetString("log-file"))
		if err != nil {
			return err
		}
		cleanup, err := logger.Setup(logger.Config{File: file, Format: format, Debug: viper.GetBool("debug")})
		if err != nil {
			return err
		}
		loggerCleanup = cleanup
		logger.L().Debug("command start", "cmd", cmd.Name(), "args", args, "config", viper.ConfigFileUsed())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogger()
	},
}

// closeLogger flushes and closes the log file once; RunE errors skip
// PersistentPostRunE, so execute calls it too.
func closeLogger() error {
	if loggerCleanup == nil {
		return nil
	}
	cleanup := loggerCleanup
	loggerCleanup = nil
	return cleanup()
}

// execute runs the command tree and always closes the logger.
func execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeLogger(); err == nil {
		err = cerr
	}
	return err
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "latmrg:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "settings file (default is $HOME/.latmrg.yaml)")
	pf.Bool("debug", false, "log at debug level")
	pf.String("log-file", "", "write the log to this file instead of stderr")
	pf.String("log-format", "", "log format: text or json (default text on a terminal)")
	pf.String("store", "", "SQLite database receiving results")
	for _, name := range []string{"debug", "log-file", "log-format", "store"} {
		viper.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddCommand(lattestCmd, seekCmd, maxPeriodCmd, factorCmd, findPrimesCmd, mwcCmd, primitiveCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".latmrg")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LATMRG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "latmrg: settings:", err)
	}
}

// openOutput returns a writer for path, "-" being standard output.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
