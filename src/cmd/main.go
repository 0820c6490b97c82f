package main

import (
	"context"
	"os"
	"time"

	"presence-svc/src/internal/config"
	"presence-svc/src/internal/logger"
	"presence-svc/src/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.StandardLogger()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "presence-svc",
		Short:         "User presence and session service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})
	root.AddCommand(newSeedCmd())

	return root
}

func serve() error {
	cfg := config.Load()
	logger.Init(cfg)

	log.Infof("Application %s is starting....", cfg.App.Name)

	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		log.WithError(err).Errorf("Error starting server: %v", err)
		return err
	}
	return nil
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the user roster and presence state from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg)

			if file == "" {
				file = cfg.App.SeedFile
			}

			deps, err := server.Connect(cfg, gin.New())
			if err != nil {
				log.WithError(err).Error("Failed to connect backing stores")
				return err
			}
			defer server.Disconnect(deps)

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			count, err := deps.UserLoader.LoadFile(ctx, file)
			if err != nil {
				log.WithError(err).WithField("file", file).Error("Seeding failed")
				return err
			}

			log.WithFields(logrus.Fields{"file": file, "count": count}).Info("Users seeded")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (defaults to app.seed-file)")
	return cmd
}
