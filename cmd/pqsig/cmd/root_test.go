package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"pqsig/app"
	"pqsig/crypto/pqc/dilithium"
	"pqsig/x/pqc/client/cli"
	"pqsig/x/pqc/types"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	rootCmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func algorithmLine(t *testing.T, out, alg string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == alg {
			return line
		}
	}
	t.Fatalf("no row for %s in:\n%s", alg, out)
	return ""
}

func TestConfigInit(t *testing.T) {
	home := t.TempDir()

	out, _, err := execute(t, "", "config", "init", "--home", home)
	require.NoError(t, err)
	require.Contains(t, out, configFilePath(home))
	require.FileExists(t, configFilePath(home))

	_, _, err = execute(t, "", "config", "init", "--home", home)
	require.ErrorContains(t, err, "already exists")

	_, _, err = execute(t, "", "config", "init", "--home", home, "--force")
	require.NoError(t, err)

	out, _, err = execute(t, "", "algorithms", "--home", home)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(algorithmLine(t, out, dilithium.AlgMLDSA44), "true"))
}

func TestConfigFileRestrictsAlgorithms(t *testing.T) {
	home := t.TempDir()
	tmpl, cfg := initAppConfig()
	cfg.PQC.AllowedAlgorithms = []string{dilithium.AlgMLDSA65, dilithium.AlgCRYDI3}
	require.NoError(t, writeConfigFile(configFilePath(home), tmpl, cfg, false))

	out, _, err := execute(t, "", "algorithms", "--home", home)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(algorithmLine(t, out, dilithium.AlgMLDSA65), "true"))
	require.True(t, strings.HasSuffix(algorithmLine(t, out, dilithium.AlgCRYDI3), "true"))
	require.True(t, strings.HasSuffix(algorithmLine(t, out, dilithium.AlgMLDSA44), "false"))

	_, _, err = execute(t, "", "keys", "generate", "--home", home, "--name", "low", "--alg", dilithium.AlgMLDSA44)
	require.NoError(t, err)
	_, _, err = execute(t, "payload", "sign", "--home", home, "--key", "low")
	require.ErrorIs(t, err, types.ErrUnsupportedAlgorithm)
}

func TestEnvironmentOverridesConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PQSIG_PQC_ALLOWED_ALGORITHMS", dilithium.AlgMLDSA87)

	out, _, err := execute(t, "", "algorithms", "--home", home)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(algorithmLine(t, out, dilithium.AlgMLDSA87), "true"))
	require.True(t, strings.HasSuffix(algorithmLine(t, out, dilithium.AlgMLDSA65), "false"))

	t.Setenv("PQSIG_PQC_CACHE_IDENTITY", "address")
	_, _, err = execute(t, "", "algorithms", "--home", home)
	require.ErrorIs(t, err, app.ErrInvalidConfig)
}

func TestEnvironmentHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PQSIG_HOME", home)

	_, _, err := execute(t, "", "config", "init")
	require.NoError(t, err)
	require.FileExists(t, configFilePath(home))

	_, _, err = execute(t, "", "keys", "generate", "--name", "envkey")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(home, "pqc_keys", "keys.json"))
}

func TestInvalidLogFlags(t *testing.T) {
	home := t.TempDir()
	_, _, err := execute(t, "", "algorithms", "--home", home, "--log-format", "xml")
	require.ErrorIs(t, err, app.ErrInvalidConfig)

	_, _, err = execute(t, "", "algorithms", "--home", home, "--log-level", "chatty")
	require.ErrorIs(t, err, app.ErrInvalidConfig)
}

func TestSignVerifyEndToEnd(t *testing.T) {
	home := t.TempDir()
	payloadPath := filepath.Join(home, "payload.txt")
	sigPath := filepath.Join(home, "payload.sig")
	require.NoError(t, os.WriteFile(payloadPath, []byte("ship it"), 0o600))

	for _, alg := range []string{dilithium.AlgMLDSA65, dilithium.AlgCRYDI3} {
		t.Run(alg, func(t *testing.T) {
			name := "signer-" + alg
			_, _, err := execute(t, "", "keys", "generate", "--home", home, "--name", name, "--alg", alg)
			require.NoError(t, err)

			_, stderr, err := execute(t, "", "sign", "--home", home, "--key", name, "--in", payloadPath, "--output", sigPath, "--metrics")
			require.NoError(t, err)
			require.Contains(t, stderr, "pqsig_pqc_resolutions_total")
			require.Contains(t, stderr, "pqsig_pqc_sign_seconds")

			out, _, err := execute(t, "", "verify", "--home", home, "--key", name, "--in", payloadPath, "--sig", "@"+sigPath)
			require.NoError(t, err)
			require.Contains(t, out, payloadPath+": valid")

			_, _, err = execute(t, "ship it!", "verify", "--home", home, "--key", name, "--in", "-", "--sig", "@"+sigPath)
			require.ErrorIs(t, err, cli.ErrVerificationFailed)
		})
	}
}

func TestJSONLogsGoToStderr(t *testing.T) {
	home := t.TempDir()
	_, _, err := execute(t, "", "keys", "generate", "--home", home, "--name", "k")
	require.NoError(t, err)

	stdout, stderr, err := execute(t, "msg", "sign", "--home", home, "--key", "k", "--log-level", "pqc:debug,*:error", "--log-format", "json")
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(stdout))
	require.Contains(t, stderr, `"module":"pqc"`)
	require.NotContains(t, stdout, `"module"`)
}
