package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ninthcircle/diceroller/internal/db"
	"github.com/ninthcircle/diceroller/internal/metrics"
	"github.com/ninthcircle/diceroller/internal/repository"
	"github.com/ninthcircle/diceroller/internal/roller"
	"github.com/ninthcircle/diceroller/internal/web/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stdout)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := d.lifecycle().Status(ctx)
	if err != nil {
		return err
	}
	for _, t := range st.Tables {
		if !t.Exists {
			return fmt.Errorf("table %s is missing, run 'diceroller install' first", t.Table)
		}
	}

	campaigns := repository.NewCampaignRepository(d.db.DB, d.db.Tables.Campaign)
	rolls := repository.NewRollRepository(d.db.DB, d.db.Tables)
	users := repository.NewUserRepository(d.db.DB)
	sessions := repository.NewSessionRepository(d.db.DB)

	if d.cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)

		dbPath := d.cfg.Database.Path
		if dbPath == db.MemoryPath {
			dbPath = ""
		}
		collector := metrics.NewCollector(m, rolls, dbPath, 15*time.Second, d.logger)
		collector.Start(ctx)
		defer collector.Stop()

		ms := metrics.NewServer(m, d.cfg.Metrics.ListenAddr, d.cfg.Metrics.Path, d.cfg.Metrics.AllowedIPs, d.logger)
		go func() {
			if err := ms.ListenAndServe(); err != nil {
				d.logger.Error("metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ms.Shutdown(shutdownCtx)
		}()
	}

	svc, err := roller.New(ctx, campaigns, rolls, d.opts, nil, d.cfg.Embed.MaxCount, d.logger)
	if err != nil {
		return err
	}

	srv, err := server.New(d.cfg, svc, users, sessions, d.logger)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		d.logger.Info("shutting down...")
		cancel()
	}()

	return srv.Run(ctx)
}
