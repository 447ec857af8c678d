package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-query/pkg/crypto"
)

// NewEncryptCommand creates the encrypt command, which seals a secret for
// use as DATASOURCE_PASSWORD or JWT_SECRET.
func NewEncryptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt [secret]",
		Short: "Encrypt a secret with CREDENTIALS_KEY",
		Long: `Encrypt a secret with the key in CREDENTIALS_KEY and print the "enc:" value.

The secret is read from the first line of stdin when no argument is given,
which keeps it out of shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncrypt(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runEncrypt(cmd *cobra.Command, opts *RootOptions, args []string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout())

	box, err := crypto.NewSecretBox(os.Getenv("CREDENTIALS_KEY"))
	if err != nil {
		err = WrapExitError(ExitCommandError, "CREDENTIALS_KEY is not set", err)
		formatter.writeError(err)
		return err
	}

	var secret string
	if len(args) == 1 {
		secret = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			err = WrapExitError(ExitCommandError, "failed to read secret from stdin", err)
			formatter.writeError(err)
			return err
		}
		secret = strings.TrimRight(line, "\r\n")
	}
	if secret == "" {
		err := NewExitError(ExitCommandError, "secret must not be empty")
		formatter.writeError(err)
		return err
	}

	sealed, err := box.Seal(secret)
	if err != nil {
		return WrapExitError(ExitFailure, "encryption failed", err)
	}
	if formatter.json() {
		return formatter.writeJSON(map[string]string{"value": sealed})
	}
	fmt.Fprintln(cmd.OutOrStdout(), sealed)
	return nil
}
