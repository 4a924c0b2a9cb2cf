package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"

	"pqsig/app"
)

const flagForce = "force"

const defaultConfigTemplate = `# pqsig configuration

[log]
# A plain level (trace|debug|info|warn|error) or a module list such as "pqc:debug,*:info".
level = "{{ .Log.Level }}"
# plain or json
format = "{{ .Log.Format }}"

[pqc]
# Parameter sets the provider factory accepts. Empty allows every registered set.
allowed_algorithms = [{{ range $i, $alg := .PQC.AllowedAlgorithms }}{{ if $i }}, {{ end }}"{{ $alg }}"{{ end }}]
# key-id or fingerprint
cache_identity = "{{ .PQC.CacheIdentity }}"

[keystore]
# Empty means <home>/pqc_keys. Relative paths resolve against the home directory.
dir = "{{ .Keystore.Dir }}"
`

func initAppConfig() (string, app.Config) {
	return defaultConfigTemplate, app.DefaultConfig()
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the pqsig configuration file",
		// config commands must work even when the existing file does not validate.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())
			return nil
		},
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default pqsig.toml under the home directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, err := cmd.Flags().GetString(app.FlagHome)
			if err != nil {
				return err
			}
			if env := os.Getenv(app.EnvPrefix + "_HOME"); env != "" && !cmd.Flags().Changed(app.FlagHome) {
				home = env
			}
			force, err := cmd.Flags().GetBool(flagForce)
			if err != nil {
				return err
			}

			tmpl, cfg := initAppConfig()
			cfg.HomeDir = home
			path := configFilePath(home)
			if err := writeConfigFile(path, tmpl, cfg, force); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool(flagForce, false, "overwrite an existing config file")
	return cmd
}

func writeConfigFile(path, tmpl string, cfg app.Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --%s to overwrite)", path, flagForce)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	t, err := template.New("pqsig.toml").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("parse config template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, cfg); err != nil {
		return fmt.Errorf("render config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
