package cmd

import (
	"fmt"
	"os"

	"github.com/andresmejia3/stable/internal/api"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/spf13/cobra"
)

var (
	serveAddr     string
	serveRegistry bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tuning, card and race operations over HTTP",
	Annotations: map[string]string{
		storeAnnotation: "registry",
	},
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("addr") {
			Cfg.Server.Addr = serveAddr
		}

		fmt.Fprintf(os.Stderr, "🌐 Stable API listening on http://%s\n", Cfg.Server.Addr)
		if DB == nil {
			fmt.Fprintf(os.Stderr, "ℹ️  Registry disabled; /api/v1/cards and /api/v1/races will answer 503\n")
		}

		srv := api.NewServer(Cfg, DB, Logger)
		if err := srv.Start(cmd.Context()); err != nil {
			utils.Die("Server failed", err)
		}
		fmt.Fprintln(os.Stderr, "👋 Server stopped.")
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config, 127.0.0.1:8080)")
	serveCmd.Flags().BoolVar(&serveRegistry, "registry", false, "Open the registry so cards and races can be stored and listed")
	rootCmd.AddCommand(serveCmd)
}
