package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pqsig/app"
	"pqsig/app/metrics"
	pqcclient "pqsig/x/pqc/client"
	"pqsig/x/pqc/client/cli"
	"pqsig/x/pqc/client/keys"
)

const flagMetrics = "metrics"

func NewRootCmd() *cobra.Command {
	var (
		v        = viper.New()
		pqsigApp *app.App
	)

	rootCmd := &cobra.Command{
		Use:           app.Name,
		Short:         "Post-quantum signature keys, signing and verification",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())

			home, err := readConfig(v, cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := app.NewConfigFromOptions(home, v)
			if err != nil {
				return err
			}
			logger, err := app.NewLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			pqsigApp, err = app.New(logger, cfg)
			if err != nil {
				return err
			}

			pqcclient.SetCmdContext(cmd, pqsigApp.ClientContext().WithInput(cmd.InOrStdin()))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if pqsigApp == nil {
				return nil
			}
			if dump, _ := cmd.Flags().GetBool(flagMetrics); dump {
				if err := metrics.WriteText(cmd.ErrOrStderr(), prometheus.DefaultGatherer); err != nil {
					return err
				}
			}
			return pqsigApp.Close()
		},
	}

	initRootCmd(rootCmd)
	return rootCmd
}

func initRootCmd(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.String(app.FlagHome, app.DefaultNodeHome, "directory for config and keystore")
	flags.String(app.FlagLogLevel, "info", `log level, or a module list such as "pqc:debug,*:info"`)
	flags.String(app.FlagLogFormat, app.LogFormatPlain, "log output format (plain|json)")
	flags.Bool(flagMetrics, false, "print pqsig metrics to stderr when the command finishes")

	rootCmd.AddCommand(
		keys.NewKeysCmd(),
		cli.NewSignCmd(),
		cli.NewVerifyCmd(),
		cli.NewAlgorithmsCmd(),
		newConfigCmd(),
	)
}

// readConfig layers <home>/config/pqsig.toml, PQSIG_* environment variables
// and explicitly set flags into v, and returns the resolved home directory.
func readConfig(v *viper.Viper, flagSet *pflag.FlagSet) (string, error) {
	v.SetEnvPrefix(app.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		app.FlagHome:     app.FlagHome,
		app.KeyLogLevel:  app.FlagLogLevel,
		app.KeyLogFormat: app.FlagLogFormat,
	}
	for key, flagName := range bindings {
		if flag := flagSet.Lookup(flagName); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return "", err
			}
		}
	}

	home := strings.TrimSpace(v.GetString(app.FlagHome))
	if home == "" {
		home = app.DefaultNodeHome
	}

	path := configFilePath(home)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return home, nil
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return home, nil
}

func configFilePath(home string) string {
	return filepath.Join(home, app.ConfigDirName, app.ConfigFileName)
}
