package main

import (
	"context"
	"fmt"
	"os"

	"pqsig/cmd/pqsig/cmd"
	"pqsig/crypto/pqc/dilithium"
)

func init() {
	_ = dilithium.Default()
	name := dilithium.ActiveBackend()
	switch name {
	case dilithium.BackendCircl:
		// allowed backends
	default:
		panic("security: invalid PQC backend linked: " + name)
	}
}

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}
