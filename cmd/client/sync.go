package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tyljohnny/davsync/internal/client/propagator"
	"github.com/tyljohnny/davsync/internal/client/workspace"
	"github.com/tyljohnny/davsync/internal/davclient"
	"github.com/tyljohnny/davsync/internal/db"
	"golang.org/x/sync/errgroup"
)

func init() {
	cmd := newSyncCmd()
	cmd.Flags().String("plan", "", "path to a JSON-encoded plan file ([]propagator.SyncItem)")
	cmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(cmd)
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one propagation pass against a plan file",
		RunE: func(cmd *cobra.Command, args []string) error {
			planPath, _ := cmd.Flags().GetString("plan")
			cmd.SilenceUsage = true
			return runSyncOnce(cmd.Context(), cmd, planPath)
		},
	}
}

func runSyncOnce(ctx context.Context, cmd *cobra.Command, planPath string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	items, err := loadPlan(planPath)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if len(items) == 0 {
		slog.Info("sync: empty plan, nothing to do")
		return nil
	}

	showHeader()

	ws, err := workspace.NewWorkspace(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	if err := ws.Setup(); err != nil {
		return fmt.Errorf("setup workspace: %w", err)
	}
	defer ws.Unlock()

	sqldb, err := db.NewSqliteDb(db.WithPath(ws.JournalPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer sqldb.Close()

	journal, err := propagator.NewSQLiteJournal(sqldb)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}

	dav, err := davclient.New(davclient.Config{
		BaseURL:   cfg.ServerURL,
		AuthToken: cfg.AuthToken,
	})
	if err != nil {
		return fmt.Errorf("init transport: %w", err)
	}
	defer dav.Close()

	events := make(chan propagator.Event, 64)
	runDone := make(chan struct{})
	prop := propagator.NewWithClients(ws.Root, dav, journal, cfg.ChunkSize, cfg.UploadRate, cfg.DownloadRate, events)

	var eg errgroup.Group
	var status propagator.Status

	eg.Go(func() error {
		for evt := range events {
			printEvent(evt)
		}
		return nil
	})

	eg.Go(func() error {
		defer close(events)
		defer close(runDone)
		status = prop.Run(ctx, items)
		return nil
	})

	eg.Go(func() error {
		select {
		case <-ctx.Done():
			prop.Abort()
		case <-runDone:
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	slog.Info("sync finished", "status", status.String(), "items", len(items))
	if status.IsError() {
		return fmt.Errorf("sync finished with status %s", status)
	}
	return nil
}

func loadPlan(path string) ([]*propagator.SyncItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []*propagator.SyncItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func printEvent(evt propagator.Event) {
	switch evt.Kind {
	case propagator.EventStartUpload:
		fmt.Printf("%s %s\n", cyan("↑"), evt.Path)
	case propagator.EventStartDownload:
		fmt.Printf("%s %s\n", cyan("↓"), evt.Path)
	case propagator.EventProgress:
		fmt.Printf("  %s %s/%s\n", evt.Path, humanize.Bytes(uint64(evt.Current)), humanize.Bytes(uint64(evt.Total)))
	case propagator.EventEndUpload, propagator.EventEndDownload:
		fmt.Printf("%s %s\n", green("✓"), evt.Path)
	case propagator.EventItemCompleted:
		if evt.Status.IsError() {
			fmt.Printf("%s %s: %s\n", red("✗"), evt.Path, evt.Status)
		}
	case propagator.EventFinished:
		fmt.Printf("%s run finished: %s\n", cyan("•"), evt.Status)
	}
}
