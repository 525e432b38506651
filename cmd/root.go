package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dStore/cmd/kv"
	"github.com/ValentinKolb/dStore/cmd/util"
	"github.com/ValentinKolb/dStore/lib/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dstore",
		Short: "embedded key-value store manager",
		Long: fmt.Sprintf(`dStore (v%s)

Manages embedded, disk-backed key-value stores: every command opens the
environment in --data-dir, runs and tears it down again. Flags can also be set
as environment variables with the DSTORE_ prefix (e.g. DSTORE_DATA_DIR=/tmp/ds).`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dStore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dStore v%s\n", Version)
		},
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := util.GetStoreConfig()
			if err != nil {
				return err
			}
			return util.Print(cmd, conf.String(), conf)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	util.SetupStoreFlags(RootCmd)

	RootCmd.AddCommand(kv.Commands...)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(configCmd)
}

// setup binds the flags and initializes the loggers before every command
func setup(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
