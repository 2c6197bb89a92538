package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := gatewayAuth(cfg)
		if err != nil {
			return err
		}
		token, err := auth.GenerateToken(tokenSubject)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, map[string]any{
				"token":      token,
				"subject":    tokenSubject,
				"expires_in": cfg.Gateway.TokenExpiry.String(),
			})
		}
		fmt.Fprintln(out, token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Subject recorded in the token")
}
