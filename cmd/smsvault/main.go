package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/smsvault/smsvault/internal/app"
	"github.com/smsvault/smsvault/internal/bus"
	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/engine"
	"github.com/smsvault/smsvault/internal/prefs"
	"go.uber.org/fx"
)

const version = "1.0.0"

func main() {
	configFlag := flag.String("config", "", "path to config file (default ~/.smsvault/config.toml)")
	quietFlag := flag.Bool("quiet", false, "suppress progress output")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	configPath := *configFlag
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fail(err)
		}
		configPath = filepath.Join(home, ".smsvault", "config.toml")
	}

	var (
		svc *engine.Service
		b   *bus.Bus
		ps  *prefs.Store
	)
	fxApp := fx.New(
		app.Module(app.Params{ConfigPath: configPath, Version: version}),
		fx.Populate(&svc, &b, &ps),
		fx.NopLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := fxApp.Start(startCtx); err != nil {
		cancel()
		fail(err)
	}
	cancel()
	defer func() { _ = fxApp.Stop(context.Background()) }()

	if !*quietFlag {
		unsubscribe := watchProgress(b)
		defer unsubscribe()
	}

	var state engine.State
	var err error
	switch args[0] {
	case "backup":
		state, err = svc.RunBackup(ctx)
	case "skip":
		state, err = svc.RunSkip(ctx)
	case "restore":
		state, err = svc.RunRestore(ctx)
	case "status":
		cmdStatus(ps)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}
	report(state)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: smsvault [--config <path>] [--quiet] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  backup    Back up new records to the remote mailbox")
	fmt.Fprintln(os.Stderr, "  skip      Mark everything as backed up without transferring")
	fmt.Fprintln(os.Stderr, "  restore   Restore messages from the remote mailbox")
	fmt.Fprintln(os.Stderr, "  status    Show per-category sync state")
}

// watchProgress prints state snapshots as they are published. Returns the
// unsubscribe function.
func watchProgress(b *bus.Bus) func() {
	ch, unsubscribe := b.Subscribe("", 64)
	go func() {
		for evt := range ch {
			state, ok := evt.Payload.(engine.State)
			if !ok {
				continue
			}
			if state.Total > 0 {
				fmt.Printf("%s: %d/%d\n", state.Phase, state.Current, state.Total)
			} else {
				fmt.Printf("%s\n", state.Phase)
			}
		}
	}()
	return unsubscribe
}

func cmdStatus(ps *prefs.Store) {
	for _, t := range category.All() {
		enabled, err := ps.BackupEnabled(t)
		if err != nil {
			fail(err)
		}
		watermark, err := ps.MaxSyncedDate(t)
		if err != nil {
			fail(err)
		}
		synced := "never"
		if watermark > 0 {
			synced = time.UnixMilli(watermark).Format(time.RFC3339)
		}
		fmt.Printf("%-12s folder=%-10q backup=%-5v last_synced=%s\n", t, ps.Folder(t), enabled, synced)
	}
}

func report(state engine.State) {
	switch state.Phase {
	case engine.PhaseError:
		fmt.Fprintf(os.Stderr, "error: %v\n", state.Err)
		os.Exit(1)
	case engine.PhaseCanceledBackup, engine.PhaseCanceledRestore:
		fmt.Printf("canceled after %d/%d items\n", state.Current, state.Total)
		os.Exit(1)
	default:
		fmt.Printf("done: %d/%d items\n", state.Current, state.Total)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
