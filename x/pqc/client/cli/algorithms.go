package cli

import (
	"github.com/spf13/cobra"

	"pqsig/crypto/pqc/dilithium"
	pqcclient "pqsig/x/pqc/client"
)

// NewAlgorithmsCmd lists the registered parameter sets and whether the
// configured factory accepts them.
func NewAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List supported parameter sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := pqcclient.GetContextFromCmd(cmd)
			if err != nil {
				return err
			}

			sets := dilithium.ParameterSets()
			cmd.Printf("Backend: %s\n", dilithium.ActiveBackend())
			cmd.Printf("%-10s %-9s %-5s %5s %8s %8s %9s %s\n", "ID", "FAMILY", "KTY", "LEVEL", "PUBLIC", "PRIVATE", "SIGNATURE", "ENABLED")
			for _, ps := range sets {
				enabled := clientCtx.Factory == nil || clientCtx.Factory.Params().Allows(ps.ID)
				cmd.Printf("%-10s %-9s %-5s %5d %8d %8d %9d %t\n",
					ps.ID, ps.Family, ps.Family.KeyType(), ps.SecurityLevel,
					ps.PublicKeySize, ps.PrivateKeySize, ps.SignatureSize, enabled)
			}
			return nil
		},
	}
}
