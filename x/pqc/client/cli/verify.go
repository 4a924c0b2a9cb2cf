package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pqcclient "pqsig/x/pqc/client"
	pqckeys "pqsig/x/pqc/client/keys"
	"pqsig/x/pqc/securitykey"
	"pqsig/x/pqc/types"
)

// ErrVerificationFailed is returned by the verify command when any signature is rejected.
var ErrVerificationFailed = errors.New("signature verification failed")

// NewVerifyCmd returns the `verify` command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify one or more signatures against a stored key or a JWK file",
		Long: `Verify signatures produced by "sign". --in and --sig may be repeated; the n-th
signature is checked against the n-th payload. A --sig value starting with @ is read
from the named file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := pqcclient.GetContextFromCmd(cmd)
			if err != nil {
				return err
			}
			if clientCtx.Factory == nil {
				return fmt.Errorf("pqc: signature provider factory not configured")
			}

			key, err := loadVerificationKey(cmd, clientCtx)
			if err != nil {
				return err
			}
			alg, err := algorithmFor(cmd, key.Algorithm())
			if err != nil {
				return err
			}

			sigValues, err := cmd.Flags().GetStringSlice(FlagSig)
			if err != nil {
				return err
			}
			if len(sigValues) == 0 {
				return fmt.Errorf("--%s is required", FlagSig)
			}
			inPaths, err := cmd.Flags().GetStringSlice(FlagIn)
			if err != nil {
				return err
			}
			if len(inPaths) == 0 {
				inPaths = []string{"-"}
			}
			if len(inPaths) != len(sigValues) {
				return fmt.Errorf("--%s and --%s must be provided the same number of times", FlagIn, FlagSig)
			}

			payloads := make([][]byte, len(inPaths))
			sigs := make([][]byte, len(sigValues))
			stdinUsed := false
			for i := range inPaths {
				if isStdin(inPaths[i]) {
					if stdinUsed {
						return errors.New("stdin can only be used for one payload")
					}
					stdinUsed = true
				}
				if payloads[i], err = readPayload(clientCtx, inPaths[i]); err != nil {
					return err
				}
				if sigs[i], err = decodeSignature(sigValues[i]); err != nil {
					return fmt.Errorf("signature %d: %w", i, err)
				}
			}

			provider, err := clientCtx.Factory.ResolveForVerifying(key, alg)
			if err != nil {
				return err
			}
			defer provider.Close()

			results, err := provider.VerifyBatch(cmd.Context(), payloads, sigs)
			if err != nil {
				return err
			}

			failed := 0
			for i, ok := range results {
				status := "valid"
				if !ok {
					status = "invalid"
					failed++
				}
				cmd.Printf("%s: %s\n", displayPath(inPaths[i]), status)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d rejected", ErrVerificationFailed, failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().String(FlagKey, "", "Name of a stored key")
	cmd.Flags().String(FlagJWK, "", "JWK file holding the verification key")
	cmd.Flags().String(FlagAlg, "", "Algorithm to verify under (defaults to the key's parameter set)")
	cmd.Flags().StringSlice(FlagIn, nil, "Payload file, or - for stdin (repeatable)")
	cmd.Flags().StringSlice(FlagSig, nil, "base64url signature, or @file (repeatable)")
	pqckeys.AddPassphraseFlags(cmd.Flags())
	return cmd
}

func loadVerificationKey(cmd *cobra.Command, clientCtx pqcclient.Context) (*securitykey.SecurityKey, error) {
	name, err := cmd.Flags().GetString(FlagKey)
	if err != nil {
		return nil, err
	}
	jwkPath, err := cmd.Flags().GetString(FlagJWK)
	if err != nil {
		return nil, err
	}
	name, jwkPath = strings.TrimSpace(name), strings.TrimSpace(jwkPath)

	switch {
	case name != "" && jwkPath != "":
		return nil, fmt.Errorf("--%s and --%s are mutually exclusive", FlagKey, FlagJWK)
	case jwkPath != "":
		data, err := readPayload(clientCtx, jwkPath)
		if err != nil {
			return nil, err
		}
		return securitykey.ParseJWK(data)
	case name != "":
		store, passphrase, err := pqckeys.OpenStore(cmd)
		if err != nil {
			return nil, err
		}
		defer wipeBytes(passphrase)
		key, err := store.LoadKey(name)
		if err != nil {
			return nil, err
		}
		return key.Public(), nil
	default:
		return nil, fmt.Errorf("one of --%s or --%s is required", FlagKey, FlagJWK)
	}
}

func decodeSignature(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(value, "@"))
		if err != nil {
			return nil, err
		}
		value = strings.TrimSpace(string(data))
	}
	return pqckeys.DecodeKey(value)
}

func readPayload(clientCtx pqcclient.Context, path string) ([]byte, error) {
	var r io.Reader
	if isStdin(path) {
		r = clientCtx.Input
	} else {
		f, err := os.Open(strings.TrimSpace(path))
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

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func isStdin(path string) bool {
	path = strings.TrimSpace(path)
	return path == "" || path == "-"
}

func displayPath(path string) string {
	if isStdin(path) {
		return "<stdin>"
	}
	return path
}
