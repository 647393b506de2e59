package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaskrrish/qkdsim/internal/httpapi"
	"github.com/jaskrrish/qkdsim/internal/simulator"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the qkdsim HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		sim := simulator.New(log)
		manager := httpapi.NewSessionManager(sim)
		handler := httpapi.NewHandler(manager, log)
		router := httpapi.NewRouter(handler, log)

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		log.WithField("addr", addr).Info("starting qkdsim API server")
		return router.Run(addr)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default: config server.port)")
	rootCmd.AddCommand(serveCmd)
}
