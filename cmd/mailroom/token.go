package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/pkg/jwt"
)

var tokenCmd = &cobra.Command{
	Use:   "token [caller-id]",
	Short: "Issue a bearer token for an API caller",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (defaults to JWT_TTL)")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	tokens, err := jwt.New(cfg.JWT)
	if err != nil {
		return err
	}

	ttl, _ := cmd.Flags().GetDuration("ttl")
	token, err := tokens.Generate(args[0], ttl)
	if err != nil {
		return err
	}
	cmd.Println(token)
	return nil
}
