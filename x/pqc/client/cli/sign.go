package cli

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pqcclient "pqsig/x/pqc/client"
	pqckeys "pqsig/x/pqc/client/keys"
)

const (
	FlagKey    = "key"
	FlagJWK    = "jwk"
	FlagAlg    = "alg"
	FlagIn     = "in"
	FlagSig    = "sig"
	FlagOutput = "output"
)

// NewSignCmd returns the `sign` command.
func NewSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a payload with a stored key and print the base64url signature",
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := pqcclient.GetContextFromCmd(cmd)
			if err != nil {
				return err
			}
			if clientCtx.Factory == nil {
				return fmt.Errorf("pqc: signature provider factory not configured")
			}

			name, err := cmd.Flags().GetString(FlagKey)
			if err != nil {
				return err
			}
			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("--%s is required", FlagKey)
			}

			store, passphrase, err := pqckeys.OpenStore(cmd)
			if err != nil {
				return err
			}
			defer wipeBytes(passphrase)

			key, err := store.LoadKey(name)
			if err != nil {
				return err
			}
			alg, err := algorithmFor(cmd, key.Algorithm())
			if err != nil {
				return err
			}

			payload, err := pqckeys.ReadInput(cmd, FlagIn)
			if err != nil {
				return err
			}

			provider, err := clientCtx.Factory.ResolveForSigning(key, alg)
			if err != nil {
				return err
			}
			defer provider.Close()

			sig, err := provider.Sign(payload)
			if err != nil {
				return err
			}
			clientCtx.Logger.Debug("signed payload", "kid", key.KeyID(), "alg", alg, "bytes", len(payload))

			encoded := base64.RawURLEncoding.EncodeToString(sig)
			outPath, err := cmd.Flags().GetString(FlagOutput)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := writeFile(outPath, []byte(encoded+"\n")); err != nil {
					return err
				}
				cmd.Printf("Signature written to %s\n", outPath)
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return err
		},
	}

	cmd.Flags().String(FlagKey, "", "Name of the stored signing key")
	cmd.Flags().String(FlagAlg, "", "Algorithm to sign under (defaults to the key's parameter set)")
	cmd.Flags().String(FlagIn, "-", "File holding the payload, or - for stdin")
	cmd.Flags().String(FlagOutput, "", "Write the signature to this file instead of stdout")
	pqckeys.AddPassphraseFlags(cmd.Flags())
	return cmd
}

func algorithmFor(cmd *cobra.Command, fallback string) (string, error) {
	alg, err := cmd.Flags().GetString(FlagAlg)
	if err != nil {
		return "", err
	}
	alg = strings.TrimSpace(alg)
	if alg == "" {
		return fallback, nil
	}
	return alg, nil
}

func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
