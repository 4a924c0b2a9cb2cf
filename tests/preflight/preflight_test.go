package preflight_test

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"pqsig/app"
	"pqsig/crypto/pqc/dilithium"
	"pqsig/x/pqc/client/keys"
	"pqsig/x/pqc/securitykey"
	pqctypes "pqsig/x/pqc/types"
)

var longHexSequence = regexp.MustCompile(`[0-9a-fA-F]{64,}`)

func readFileIfExists(t *testing.T, path string) (string, bool) {
	t.Helper()
	bz, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(bz), true
}

func TestPQCBackendApproved(t *testing.T) {
	dilithium.Default()
	name := dilithium.ActiveBackend()
	switch name {
	case dilithium.BackendCircl:
	default:
		t.Fatalf("unapproved PQC backend linked: %s", name)
	}
}

func TestEveryParameterSetRoundTrips(t *testing.T) {
	a, err := app.New(nil, app.DefaultConfig())
	require.NoError(t, err)
	factory := a.Factory()

	for _, ps := range dilithium.ParameterSets() {
		key, err := securitykey.Generate(ps.ID)
		require.NoError(t, err, ps.ID)

		doc, err := key.MarshalJWK(false)
		require.NoError(t, err, ps.ID)
		public, err := securitykey.ParseJWK(doc)
		require.NoError(t, err, ps.ID)

		signer, err := factory.ResolveForSigning(key, ps.ID)
		require.NoError(t, err, ps.ID)
		verifier, err := factory.ResolveForVerifying(public, ps.ID)
		require.NoError(t, err, ps.ID)

		msg := []byte("preflight " + ps.ID)
		sig, err := signer.Sign(msg)
		require.NoError(t, err, ps.ID)
		require.Len(t, sig, ps.SignatureSize)
		require.True(t, verifier.Verify(msg, sig), ps.ID)
		require.False(t, verifier.Verify(append(msg, '!'), sig), ps.ID)
	}
}

func TestPQCNoSensitiveLogs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := app.NewLogger(buf, app.LogConfig{Level: "debug", Format: app.LogFormatJSON})
	require.NoError(t, err)

	cfg := app.DefaultConfig()
	cfg.HomeDir = t.TempDir()
	a, err := app.New(logger, cfg)
	require.NoError(t, err)

	key, err := securitykey.Generate(dilithium.AlgMLDSA65)
	require.NoError(t, err)
	p, err := a.Factory().ResolveForSigning(key, dilithium.AlgMLDSA65)
	require.NoError(t, err)
	sig, err := p.Sign([]byte("payload"))
	require.NoError(t, err)
	require.True(t, p.Verify([]byte("payload"), sig))

	store, err := keys.LoadStore(cfg.HomeDir, keys.WithDir(cfg.KeystoreDir()))
	require.NoError(t, err)
	require.NoError(t, store.PutKey("preflight", key))
	require.NoError(t, a.Close())

	out := buf.String()
	require.NotEmpty(t, out, "debug logging should emit resolution events")
	priv := key.PrivateKey()
	require.NotContains(t, out, base64.RawURLEncoding.EncodeToString(priv))
	require.NotContains(t, out, hex.EncodeToString(priv[:32]))
	require.NotContains(t, strings.ToLower(out), "seed")
	if longHexSequence.MatchString(out) {
		t.Fatalf("debug log contains long hex payload: %s", out)
	}
}

func TestConfigFromAppOptions(t *testing.T) {
	opts := testAppOptions{
		app.KeyAllowedAlgorithms: []interface{}{dilithium.AlgMLDSA65},
		app.KeyCacheIdentity:     string(pqctypes.CacheByFingerprint),
	}
	cfg, err := app.NewConfigFromOptions(t.TempDir(), opts)
	require.NoError(t, err)
	require.Equal(t, pqctypes.CacheByFingerprint, cfg.Params().CacheIdentity)

	opts = testAppOptions{
		app.KeyAllowedAlgorithms: "Dilithium3",
	}
	_, err = app.NewConfigFromOptions(t.TempDir(), opts)
	require.ErrorIs(t, err, app.ErrInvalidConfig)
}

func TestLimitsPresent(t *testing.T) {
	repoRoot := findRepoRoot(t)
	checks := map[string][]string{
		"x/pqc/types/limits.go": {"KeyIDMaxLen", "AlgorithmMaxLen", "EncodedKeyMaxLen", "DocumentMaxLen"},
	}
	for file, tokens := range checks {
		contents, ok := readFileIfExists(t, filepath.Join(repoRoot, file))
		require.Truef(t, ok, "%s must exist", file)
		for _, token := range tokens {
			if !strings.Contains(contents, token) {
				t.Fatalf("%s missing constant %s", file, token)
			}
		}
	}

	largest := 0
	for _, ps := range dilithium.ParameterSets() {
		if ps.PrivateKeySize > largest {
			largest = ps.PrivateKeySize
		}
	}
	require.LessOrEqual(t, base64.RawURLEncoding.EncodedLen(largest), pqctypes.EncodedKeyMaxLen)
}

func TestGoModHasNoReplace(t *testing.T) {
	repoRoot := findRepoRoot(t)
	gomod, ok := readFileIfExists(t, filepath.Join(repoRoot, "go.mod"))
	require.True(t, ok, "go.mod must exist")

	sc := bufio.NewScanner(strings.NewReader(gomod))
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			require.Equal(t, "module pqsig", line)
			first = false
		}
		if strings.HasPrefix(line, "replace") {
			t.Fatalf("go.mod must not carry replace directives: %s", line)
		}
	}
}

func TestNoPrivateKeyLoggingCalls(t *testing.T) {
	repoRoot := findRepoRoot(t)
	banned := []*regexp.Regexp{
		regexp.MustCompile(`(?i)\.(Debug|Info|Warn|Error)\([^)]*PrivateKey\(\)`),
		regexp.MustCompile(`(?i)fmt\.Print[a-z]*\([^)]*PrivateKey\(\)`),
	}

	walkGoFiles(t, repoRoot, func(rel string, data []byte) {
		if strings.HasSuffix(rel, "_test.go") {
			return
		}
		for _, re := range banned {
			if re.Match(data) {
				t.Fatalf("private key material passed to a logger in %s", rel)
			}
		}
	})
}

func TestImportsStayInModule(t *testing.T) {
	repoRoot := findRepoRoot(t)
	banned := [][]byte{
		[]byte(`"github.com/cosmos/` + `cosmos-sdk`),
		[]byte(`"github.com/` + `cometbft/`),
		[]byte(`"lumen` + `/`),
	}
	walkGoFiles(t, repoRoot, func(rel string, data []byte) {
		for _, needle := range banned {
			if bytes.Contains(data, needle) {
				t.Fatalf("%s imports %s", rel, needle)
			}
		}
	})
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	_, thisfile, _, _ := runtime.Caller(0)
	dir := filepath.Dir(thisfile)
	return filepath.Clean(filepath.Join(dir, "../.."))
}

type testAppOptions map[string]interface{}

func (o testAppOptions) Get(key string) interface{} { return o[key] }

func walkGoFiles(t *testing.T, root string, fn func(rel string, data []byte)) {
	t.Helper()
	skip := map[string]bool{
		".git":   true,
		"dist":   true,
		"build":  true,
		"vendor": true,
	}

	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			base := filepath.Base(path)
			if skip[base] || (path != root && strings.HasPrefix(base, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		fn(filepath.ToSlash(rel), data)
		return nil
	}); err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
}
