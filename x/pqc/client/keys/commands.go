package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pqsig/crypto/pqc/dilithium"
	pqcclient "pqsig/x/pqc/client"
	"pqsig/x/pqc/securitykey"
	"pqsig/x/pqc/types"
)

const (
	FlagName    = "name"
	FlagAlg     = "alg"
	FlagKeyID   = "kid"
	FlagFile    = "file"
	FlagOutput  = "output"
	FlagPrivate = "private"
	FlagPretty  = "pretty"
	FlagForce   = "force"
	FlagSet     = "set"
	FlagPubKey  = "pubkey"
	FlagPrivKey = "privkey"
)

// NewKeysCmd returns the `keys` command tree.
func NewKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage lattice signature keys in the local keystore",
	}
	AttachCommands(cmd)
	return cmd
}

// AttachCommands adds key management commands under keysCmd.
func AttachCommands(keysCmd *cobra.Command) {
	keysCmd.AddCommand(
		NewGenerateCmd(),
		NewImportJWKCmd(),
		NewImportRawCmd(),
		NewExportCmd(),
		NewListCmd(),
		NewShowCmd(),
		NewDeleteCmd(),
	)
}

// NewGenerateCmd generates a key pair and stores it under --name.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a key pair for a parameter set and store it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := requiredString(cmd.Flags(), FlagName)
			if err != nil {
				return err
			}
			alg, err := cmd.Flags().GetString(FlagAlg)
			if err != nil {
				return err
			}
			kid, err := cmd.Flags().GetString(FlagKeyID)
			if err != nil {
				return err
			}

			var key *securitykey.SecurityKey
			if strings.TrimSpace(kid) == "" {
				key, err = securitykey.Generate(alg)
			} else {
				key, err = securitykey.GenerateWithID(alg, strings.TrimSpace(kid))
			}
			if err != nil {
				return fmt.Errorf("generate pqc key: %w", err)
			}

			store, passphrase, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer wipeBytes(passphrase)

			if _, exists := store.GetKey(name); exists {
				return fmt.Errorf("a key named %q already exists", name)
			}
			if err := store.PutKey(name, key); err != nil {
				return err
			}
			cmd.Printf("Stored %s key as %q (kid %s, fingerprint %s)\n", key.Algorithm(), name, key.KeyID(), shortFingerprint(key))
			if len(passphrase) == 0 {
				cmd.Println("[pqc-keystore] WARNING: stored in plaintext. Supply --pqc-passphrase or --pqc-passphrase-file to encrypt the keystore.")
			}

			pubOut, err := cmd.Flags().GetString(FlagOutput)
			if err != nil {
				return err
			}
			if pubOut != "" {
				force, err := cmd.Flags().GetBool(FlagForce)
				if err != nil {
					return err
				}
				data, err := marshalJSON(key.ToJWK(false), true)
				if err != nil {
					return err
				}
				if err := writeBytesToFile(pubOut, data, force); err != nil {
					return err
				}
				cmd.Printf("Public JWK written to %s\n", pubOut)
			}
			return nil
		},
	}

	cmd.Flags().String(FlagName, "", "Local name for the key")
	cmd.Flags().String(FlagAlg, dilithium.DefaultAlgorithm, "Parameter set ("+strings.Join(dilithium.IDs(), ", ")+")")
	cmd.Flags().String(FlagKeyID, "", "Key id to assign (defaults to a random UUID)")
	cmd.Flags().String(FlagOutput, "", "Also write the public JWK to this file")
	cmd.Flags().Bool(FlagForce, false, "Allow overwriting the output file")
	addPassphraseFlags(cmd)
	return cmd
}

// NewImportJWKCmd imports a JWK document (or every key of a JWK set).
func NewImportJWKCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-jwk",
		Short: "Import a JWK document or JWK set into the keystore",
		Long: `Import a JWK document into the keystore under --name. With --set the input is a
{"keys": [...]} document and every key is stored under its kid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, FlagFile)
			if err != nil {
				return err
			}
			asSet, err := cmd.Flags().GetBool(FlagSet)
			if err != nil {
				return err
			}

			store, passphrase, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer wipeBytes(passphrase)

			if asSet {
				set, err := securitykey.ParseJWKSet(data)
				if err != nil {
					return err
				}
				keys, err := set.SecurityKeys()
				if err != nil {
					return err
				}
				for _, key := range keys {
					if err := store.PutKey(key.KeyID(), key); err != nil {
						return err
					}
					cmd.Printf("Imported %s key %q (private key: %s)\n", key.Algorithm(), key.KeyID(), key.PrivateKeyStatus())
				}
				return nil
			}

			name, err := requiredString(cmd.Flags(), FlagName)
			if err != nil {
				return err
			}
			key, err := securitykey.ParseJWK(data)
			if err != nil {
				return err
			}
			if err := store.PutKey(name, key); err != nil {
				return err
			}
			cmd.Printf("Imported %s key as %q (private key: %s)\n", key.Algorithm(), name, key.PrivateKeyStatus())
			return nil
		},
	}

	cmd.Flags().String(FlagName, "", "Local name for the key")
	cmd.Flags().String(FlagFile, "-", "JWK file to read, or - for stdin")
	cmd.Flags().Bool(FlagSet, false, "Treat the input as a JWK set")
	addPassphraseFlags(cmd)
	return cmd
}

// NewImportRawCmd imports raw key bytes.
func NewImportRawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-raw",
		Short: "Import raw key bytes (hex, base64 or base64url) into the keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := requiredString(cmd.Flags(), FlagName)
			if err != nil {
				return err
			}
			alg, err := cmd.Flags().GetString(FlagAlg)
			if err != nil {
				return err
			}
			kid, err := cmd.Flags().GetString(FlagKeyID)
			if err != nil {
				return err
			}
			if strings.TrimSpace(kid) == "" {
				kid = name
			}

			pubInput, err := requiredString(cmd.Flags(), FlagPubKey)
			if err != nil {
				return err
			}
			pubKey, err := DecodeKey(pubInput)
			if err != nil {
				return err
			}

			privInput, err := cmd.Flags().GetString(FlagPrivKey)
			if err != nil {
				return err
			}
			var privKey []byte
			if strings.TrimSpace(privInput) != "" {
				privKey, err = DecodeKey(privInput)
				if err != nil {
					return err
				}
				defer wipeBytes(privKey)
			}

			key, err := securitykey.ImportFromBytes(alg, kid, pubKey, privKey)
			if err != nil {
				return err
			}

			store, passphrase, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer wipeBytes(passphrase)

			if err := store.PutKey(name, key); err != nil {
				return err
			}
			if len(passphrase) == 0 && key.HasPrivateKey() {
				cmd.Println("[pqc-keystore] WARNING: key stored unencrypted. Provide --pqc-passphrase or --pqc-passphrase-file to enable encryption.")
			}
			cmd.Printf("Imported %s key as %q.\n", key.Algorithm(), name)
			return nil
		},
	}

	cmd.Flags().String(FlagName, "", "Local name for the key")
	cmd.Flags().String(FlagAlg, dilithium.DefaultAlgorithm, "Parameter set of the key")
	cmd.Flags().String(FlagKeyID, "", "Key id to assign (defaults to --name)")
	cmd.Flags().String(FlagPubKey, "", "Public key bytes (hex, base64 or base64url)")
	cmd.Flags().String(FlagPrivKey, "", "Private key bytes (hex, base64 or base64url); omit for a verify-only key")
	addPassphraseFlags(cmd)
	return cmd
}

// NewExportCmd writes stored keys as JWK.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [name...]",
		Short: "Export stored keys as a JWK document or JWK set",
		RunE: func(cmd *cobra.Command, args []string) error {
			includePrivate, err := cmd.Flags().GetBool(FlagPrivate)
			if err != nil {
				return err
			}
			asSet, err := cmd.Flags().GetBool(FlagSet)
			if err != nil {
				return err
			}
			pretty, err := cmd.Flags().GetBool(FlagPretty)
			if err != nil {
				return err
			}
			if !asSet && len(args) != 1 {
				return errors.New("export takes exactly one key name unless --set is given")
			}

			store, passphrase, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer wipeBytes(passphrase)

			names := args
			if asSet && len(names) == 0 {
				for _, rec := range store.ListKeys() {
					names = append(names, rec.Name)
				}
			}

			keys := make([]*securitykey.SecurityKey, 0, len(names))
			for _, name := range names {
				key, err := store.LoadKey(name)
				if err != nil {
					return err
				}
				keys = append(keys, key)
			}

			var doc any
			if asSet {
				doc = securitykey.NewJWKSet(includePrivate, keys...)
			} else {
				doc = keys[0].ToJWK(includePrivate)
			}
			data, err := marshalJSON(doc, pretty)
			if err != nil {
				return err
			}

			outPath, err := cmd.Flags().GetString(FlagOutput)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			force, err := cmd.Flags().GetBool(FlagForce)
			if err != nil {
				return err
			}
			if err := writeBytesToFile(outPath, data, force); err != nil {
				return err
			}
			cmd.Printf("JWK written to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().Bool(FlagPrivate, false, "Include the private component (d) when present")
	cmd.Flags().Bool(FlagSet, false, "Export a JWK set; with no names every stored key is included")
	cmd.Flags().Bool(FlagPretty, true, "Pretty-print the generated JSON")
	cmd.Flags().String(FlagOutput, "", "Write the JWK to this file instead of stdout")
	cmd.Flags().Bool(FlagForce, false, "Allow overwriting the output file")
	addPassphraseFlags(cmd)
	return cmd
}

// NewListCmd lists the locally stored keys.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, passphrase, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer wipeBytes(passphrase)

			records := store.ListKeys()
			if len(records) == 0 {
				cmd.Println("No PQC keys stored.")
				return nil
			}
			cmd.Println("PQC Keys:")
			for _, rec := range records {
				key, err := rec.SecurityKey()
				if err != nil {
					cmd.Printf("  - %s (%s) unreadable: %v\n", rec.Name, rec.JWK.Alg, err)
					continue
				}
				cmd.Printf("  - %s (%s) kid %s fingerprint %s private %t\n",
					rec.Name, key.Algorithm(), key.KeyID(), shortFingerprint(key), key.HasPrivateKey())
			}
			return nil
		},
	}
	addPassphraseFlags(cmd)
	return cmd
}

// NewShowCmd prints details for a single key.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show information about a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, passphrase, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer wipeBytes(passphrase)

			record, ok := store.GetKey(args[0])
			if !ok {
				return types.ErrKeyNotFound.Wrapf("no key named %q", args[0])
			}
			key, err := record.SecurityKey()
			if err != nil {
				return err
			}
			ps := key.ParameterSet()

			cmd.Printf("Name:           %s\n", record.Name)
			cmd.Printf("Key ID:         %s\n", key.KeyID())
			cmd.Printf("Algorithm:      %s (%s, level %d)\n", ps.ID, ps.Family, ps.SecurityLevel)
			cmd.Printf("Key Type:       %s\n", ps.Family.KeyType())
			cmd.Printf("Fingerprint:    %s\n", key.Fingerprint())
			cmd.Printf("Private Key:    %s\n", key.PrivateKeyStatus())
			cmd.Printf("Created At:     %s\n", record.CreatedAt.Format(time.RFC3339))
			cmd.Printf("Public Key:     %d bytes\n", len(key.PublicKey()))
			if !store.Encrypted() && key.HasPrivateKey() {
				cmd.Println("\nWARNING: PQC keys are stored in plaintext; pass --pqc-passphrase-file to enable encryption.")
			}
			return nil
		},
	}
	addPassphraseFlags(cmd)
	return cmd
}

// NewDeleteCmd removes a key from the keystore.
func NewDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, passphrase, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer wipeBytes(passphrase)

			if err := store.DeleteKey(args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted %q.\n", args[0])
			return nil
		},
	}
	addPassphraseFlags(cmd)
	return cmd
}

func requiredString(flagSet *pflag.FlagSet, name string) (string, error) {
	value, err := flagSet.GetString(name)
	if err != nil {
		return "", err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	return value, nil
}

// ReadInput reads the file named by flag, or the command input when it is "-".
func ReadInput(cmd *cobra.Command, flag string) ([]byte, error) {
	return readInput(cmd, flag)
}

func readInput(cmd *cobra.Command, flag string) ([]byte, error) {
	path, err := cmd.Flags().GetString(flag)
	if err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)

	var r io.Reader
	if path == "" || path == "-" {
		clientCtx, err := pqcclient.GetContextFromCmd(cmd)
		if err != nil {
			return nil, err
		}
		r = clientCtx.Input
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, types.DocumentMaxLen+1))
	if err != nil {
		return nil, err
	}
	if len(data) > types.DocumentMaxLen {
		return nil, fmt.Errorf("input exceeds %d bytes", types.DocumentMaxLen)
	}
	return data, nil
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	return data, nil
}

func writeBytesToFile(path string, data []byte, force bool) error {
	if path == "" {
		return errors.New("output path is empty")
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

const (
	flagPassphrase     = "pqc-passphrase"
	flagPassphraseFile = "pqc-passphrase-file"
	envPassphrase      = "PQSIG_PQC_PASSPHRASE"
	envPassphraseFile  = "PQSIG_PQC_PASSPHRASE_FILE"
)

func addPassphraseFlags(cmd *cobra.Command) {
	AddPassphraseFlags(cmd.Flags())
}

// AddPassphraseFlags registers the keystore passphrase flags on flagSet.
func AddPassphraseFlags(flagSet *pflag.FlagSet) {
	flagSet.String(flagPassphrase, "", "Passphrase protecting the PQC keystore (prefer --pqc-passphrase-file or environment variables)")
	flagSet.String(flagPassphraseFile, "", "Path to a file containing the PQC keystore passphrase")
}

// OpenStore opens the keystore configured for cmd. The returned passphrase
// must be wiped by the caller.
func OpenStore(cmd *cobra.Command) (*Store, []byte, error) {
	return openStore(cmd)
}

func openStore(cmd *cobra.Command) (*Store, []byte, error) {
	clientCtx, err := pqcclient.GetContextFromCmd(cmd)
	if err != nil {
		return nil, nil, err
	}
	passphrase, err := readPassphrase(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	store, err := LoadStore(clientCtx.HomeDir, WithDir(clientCtx.KeystoreDir), WithPassphrase(passphrase))
	if err != nil {
		wipeBytes(passphrase)
		return nil, nil, err
	}
	return store, passphrase, nil
}

func readPassphrase(flagSet *pflag.FlagSet) ([]byte, error) {
	filePath, err := flagSet.GetString(flagPassphraseFile)
	if err != nil {
		return nil, err
	}
	if filePath == "" {
		filePath = os.Getenv(envPassphraseFile)
	}
	if strings.TrimSpace(filePath) != "" {
		data, err := os.ReadFile(strings.TrimSpace(filePath))
		if err != nil {
			return nil, err
		}
		pass := strings.TrimSpace(string(data))
		wipeBytes(data)
		if pass != "" {
			return []byte(pass), nil
		}
	}

	pass, err := flagSet.GetString(flagPassphrase)
	if err != nil {
		return nil, err
	}
	if pass == "" {
		pass = os.Getenv(envPassphrase)
	}
	pass = strings.TrimSpace(pass)
	if pass == "" {
		return nil, nil
	}
	return []byte(pass), nil
}

func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func shortFingerprint(key *securitykey.SecurityKey) string {
	return key.Fingerprint()[:16]
}
