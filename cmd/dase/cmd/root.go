package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOpts struct {
	cfgFile string
	verbose bool
	dbPath  string
	culture string
	strict  bool
}

var rootOpt rootOpts

var longRootCmdDescription = `dase reads, writes, validates and stores DASE documents: element trees
in the DASE XML dialect, with JSON and YAML as interchange formats.
`

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "dase",
	Short:         "Work with DASE model documents",
	Long:          longRootCmdDescription,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Errorf("dase: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(NewValidateCmd(), NewConvertCmd(), NewCheckCmd(), NewConfigCmd(), NewStoreCmd())

	rootCmd.PersistentFlags().StringVar(&rootOpt.cfgFile, "config", "", "settings file (default: $DASE_CONFIG, ./dase.yaml, ~/.config/dase/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&rootOpt.verbose, "verbose", "v", false, "log debug output")
	rootCmd.PersistentFlags().StringVar(&rootOpt.dbPath, "db", "", "document store path (overrides the settings file)")
	rootCmd.PersistentFlags().StringVar(&rootOpt.culture, "culture", "", "culture used to read localized text, e.g. de-DE")
	rootCmd.PersistentFlags().BoolVar(&rootOpt.strict, "strict", false, "reject mismatched XML end tags")
	rootCmd.DisableAutoGenTag = true
}

func initLogger() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: !rootOpt.verbose,
		FullTimestamp:    true,
	})
	if rootOpt.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
