package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"promo-wizard/internal/app/server"
	"promo-wizard/internal/config"
	"promo-wizard/internal/storage"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configDir string
	root := &cobra.Command{
		Use:          "promo-wizard",
		Short:        "Promo creation wizard backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "directory holding application.yaml")

	load := func() (config.Config, error) {
		cfg, err := config.LoadFrom(viper.New(), configDir)
		if err != nil {
			return config.Config{}, err
		}
		config.SetupLogging(cfg.Server.LogLevel, cfg.Server.LogFormat)
		return cfg, nil
	}

	root.AddCommand(serveCmd(load), draftCmd(load))
	return root
}

func serveCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer srv.Close()
			return srv.Run(ctx)
		},
	}
}

func draftCmd(load func() (config.Config, error)) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect stored wizard drafts",
	}
	cmd.PersistentFlags().StringVar(&owner, "owner", "", "wizard session id the draft belongs to")
	_ = cmd.MarkPersistentFlagRequired("owner")

	open := func(ctx context.Context) (*storage.Store, config.Config, error) {
		cfg, err := load()
		if err != nil {
			return nil, cfg, err
		}
		if !cfg.UsePostgres() {
			return nil, cfg, errors.New("drafts are only inspectable with postgres configured")
		}
		st, err := storage.New(ctx, cfg)
		return st, cfg, err
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored draft as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, cfg, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			d, found, err := st.Load(cmd.Context(), owner, cfg.Wizard.DraftKey)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no draft for owner %s", owner)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		},
	}, &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored draft",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, cfg, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Clear(cmd.Context(), owner, cfg.Wizard.DraftKey); err != nil {
				return err
			}
			log.Info().Str("owner", owner).Msg("draft cleared")
			return nil
		},
	})
	return cmd
}
