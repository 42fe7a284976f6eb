package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"caveatlab/delegraph/internal/server"
	"caveatlab/delegraph/internal/simulator"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the playground JSON API for a renderer",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := OpenSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		addr := cfg.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		sim := simulator.New(simulator.Config{Dwell: cfg.Dwell, Logger: log})
		srv := server.New(sess, sim, server.Config{
			Addr:        addr,
			CORSOrigins: cfg.CORSOrigins,
			Logger:      log,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address (default from DELEGRAPH_HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
