package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/orcbot/internal/config"
	"github.com/ShayCichocki/orcbot/internal/gateway"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fleet over HTTP",
	Long: `Expose the orchestrator as a JSON API with a server-sent event stream.

When gateway.jwt_secret (or ORCBOT_JWT_SECRET) is set, every route except
GET /healthz requires a bearer token from 'orcbot token'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := f.WatchProgress(); err != nil {
			return err
		}

		auth, err := gatewayAuth(cfg)
		if err != nil && !errors.Is(err, config.ErrNoJWTSecret) {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.Gateway.Addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		printStatus(out, "✓", fmt.Sprintf("Serving %s on http://%s", f.DataDir(), addr), color.FgGreen)
		if auth == nil {
			printStatus(out, "⚠", "No JWT secret configured; the API is unauthenticated", color.FgYellow)
		}
		return gateway.NewServer(f, auth).ListenAndServe(ctx, addr)
	},
}

// gatewayAuth builds the token authority from config.
func gatewayAuth(c *config.Config) (*gateway.Auth, error) {
	secret, err := config.GetJWTSecret(c)
	if err != nil {
		return nil, err
	}
	return gateway.NewAuth(secret, c.Gateway.TokenExpiry)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default gateway.addr)")
}

