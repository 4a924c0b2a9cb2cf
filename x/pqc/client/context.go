package client

import (
	"context"
	"errors"
	"io"
	"os"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"pqsig/x/pqc/provider"
)

// Context carries what pqc commands need from the application.
type Context struct {
	HomeDir     string
	KeystoreDir string
	Logger      log.Logger
	Factory     *provider.Factory
	Input       io.Reader
}

type contextKey struct{}

func (c Context) WithInput(r io.Reader) Context {
	c.Input = r
	return c
}

// SetCmdContext attaches ctx to cmd and all of its children.
func SetCmdContext(cmd *cobra.Command, ctx Context) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	cmd.SetContext(context.WithValue(parent, contextKey{}, &ctx))
}

// GetContextFromCmd returns the Context installed by the root command.
func GetContextFromCmd(cmd *cobra.Command) (Context, error) {
	if cmd.Context() == nil {
		return Context{}, errors.New("pqc: command context not initialised")
	}
	ctx, ok := cmd.Context().Value(contextKey{}).(*Context)
	if !ok || ctx == nil {
		return Context{}, errors.New("pqc: command context not initialised")
	}
	out := *ctx
	if out.Input == nil {
		out.Input = os.Stdin
	}
	if out.Logger == nil {
		out.Logger = log.NewNopLogger()
	}
	return out, nil
}
