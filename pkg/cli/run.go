package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-query/pkg/auth"
	"github.com/ekaya-inc/ekaya-query/pkg/config"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var reqFlags requestFlags
	var token string

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Execute a query",
		Long: `Execute a catalog query against the configured datasource and print the rows.

The caller's roles come from --token, a JWT verified with auth.jwt_secret.
Without a token the query runs anonymously and role-restricted attributes
are masked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, &reqFlags, token, args[0])
		},
	}

	reqFlags.register(cmd)
	cmd.Flags().StringVar(&token, "token", "", "JWT identifying the caller (bare or \"Bearer <token>\")")
	return cmd
}

func runQuery(cmd *cobra.Command, opts *RootOptions, reqFlags *requestFlags, token, name string) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts, cmd.OutOrStdout())
	fail := func(err error) error {
		formatter.writeError(err)
		return err
	}

	s, err := openSession(ctx, opts, true)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	def, ok := s.engine.Definition(name)
	if !ok {
		return fail(WrapExitError(ExitCommandError, "unknown query", apperrors.NewNotFoundError(name)))
	}
	req, err := reqFlags.build(def)
	if err != nil {
		return fail(WrapExitError(ExitCommandError, "invalid request", err))
	}

	ctx, err = authenticate(ctx, s.cfg.Auth, token, s.logger)
	if err != nil {
		return fail(WrapExitError(ExitCommandError, "authentication failed", err))
	}
	req.Security = auth.SecurityFromContext(ctx)

	result, err := s.engine.Execute(ctx, name, req)
	if err != nil {
		return fail(WrapExitError(ExitFailure, "query failed", err))
	}
	return formatter.writeResult(def, result)
}

// authenticate stores the caller identified by token in ctx. An empty token
// leaves ctx anonymous.
func authenticate(ctx context.Context, cfg config.AuthConfig, token string, logger *zap.Logger) (context.Context, error) {
	if token == "" {
		return ctx, nil
	}
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		EnableVerification: cfg.EnableVerification,
		Secret:             []byte(cfg.JWTSecret),
		Audience:           cfg.Audience,
	})
	if err != nil {
		return nil, err
	}
	return auth.NewService(verifier, logger).Context(ctx, token)
}
