package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/jobaru/internal/config"
	"github.com/jonathan/jobaru/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the control API",
	Long: `Print a token accepted by the control API of a running 'jobaru apply'.
The token is signed with JOBARU_CONTROL_SECRET, which must match the secret
of the running session.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

var tokenSubject string

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject (random when empty)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig(getenv)
	if err != nil {
		return err
	}
	subject := tokenSubject
	if subject == "" {
		subject = uuid.NewString()
	}
	token, err := server.NewJWTService(jwtConfig).GenerateToken(subject)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token) //nolint:errcheck
	return nil
}
