// Command hotkiworldd runs the World actor standalone and exposes its
// read/command surface through a small CLI, in the style of the
// teacher's cmd/mcp-tool and cmd/macos-use-mcp entrypoints: load config,
// wire collaborators, serve until signalled, shut down gracefully.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hotki-project/hotki-world/internal/axpool"
	"github.com/hotki-project/hotki-world/internal/config"
	"github.com/hotki-project/hotki-world/internal/placement"
	"github.com/hotki-project/hotki-world/internal/world"
)

var configFile string

// sharedPool and sharedPoolOnce give every World this process spawns the
// process-global AX Read Pool lifetime spec.md §4.2 requires: whichever
// subcommand runs first builds the pool against its cfg, and every World
// built afterwards (a respawn after Close, or a future long-running
// daemon mode) reuses that same pool and its hint channel instead of
// starting over with a cold cache.
var (
	sharedPoolOnce sync.Once
	sharedPool     *axpool.Pool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hotkiworldd",
		Short: "Run and query the hotki window-world actor",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional config file overlay (yaml/toml/json)")

	root.AddCommand(newStatusCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newPlaceCmd())
	root.AddCommand(newRaiseCmd())
	return root
}

func loadConfig() (config.WorldCfg, error) {
	return config.Load(configFile)
}

// startWorld builds a World over the real macOS collaborators and runs
// its reconcile loop in the background, returning a stop func the caller
// must invoke before exiting so Close() can drain quiescently.
func startWorld(ctx context.Context, cfg config.WorldCfg) (*world.World, func()) {
	deps := newRealDeps()
	sharedPoolOnce.Do(func() {
		sharedPool = axpool.New(deps.Adapter, axpool.Config{
			Concurrency:   cfg.AXPoolConcurrency,
			Deadline:      cfg.AXPoolDeadline,
			CacheCapacity: cfg.AXCacheCapacity,
			CacheTTL:      cfg.AXCacheTTL,
		})
	})
	deps.Pool = sharedPool
	w := world.New(cfg, deps)
	runCtx, cancel := context.WithCancel(ctx)
	go w.Run(runCtx)
	return w, func() {
		cancel()
		w.Close()
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print permission state, poll interval and window count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			w, stop := startWorld(cmd.Context(), cfg)
			defer stop()
			time.Sleep(cfg.AXPoolDeadline) // let the first reconcile pass land
			s := w.Status()
			fmt.Fprintf(cmd.OutOrStdout(),
				"accessibility_granted=%v screen_recording_granted=%v poll_ms=%d windows=%d subscribers=%d\n",
				s.AccessibilityGranted, s.ScreenRecordingGranted, s.CurrentPollMs, s.WindowCount, s.Subscribers)
			return nil
		},
	}
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print every live window, frontmost first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			w, stop := startWorld(cmd.Context(), cfg)
			defer stop()
			time.Sleep(cfg.AXPoolDeadline)
			for _, win := range w.Snapshot() {
				fmt.Fprintf(cmd.OutOrStdout(), "z=%d pid=%d id=%d app=%q title=%q focused=%v\n",
					win.Z, win.Key.PID, win.Key.ID, win.App, win.Title, win.Focused)
			}
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream world events until the duration elapses or ctrl-c",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			w, stop := startWorld(ctx, cfg)
			defer stop()

			cursor := w.Subscribe()
			defer w.Unsubscribe(cursor)

			deadline := time.Now().Add(duration)
			for {
				ev, ok := w.NextEventUntil(ctx, cursor, deadline)
				if !ok {
					return nil
				}
				logEvent(cmd, ev)
				if time.Now().After(deadline) {
					return nil
				}
			}
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how long to watch before exiting")
	return cmd
}

func logEvent(cmd *cobra.Command, ev world.Event) {
	slog.Info("world event", "kind", ev.Kind, "pid", ev.Key.PID, "id", ev.Key.ID)
}

func newPlaceCmd() *cobra.Command {
	var pid int32
	var id uint32
	var cols, rows, col, row int
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place a window into a grid cell",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			w, stop := startWorld(cmd.Context(), cfg)
			defer stop()
			time.Sleep(cfg.AXPoolDeadline)

			receipt := w.RequestPlaceForWindow(
				world.WindowKey{PID: pid, ID: id}, cols, rows, col, row, placement.Options{})
			fmt.Fprintf(cmd.OutOrStdout(), "receipt=%s\n", receipt.ID)
			return nil
		},
	}
	cmd.Flags().Int32Var(&pid, "pid", 0, "target window's owning process id")
	cmd.Flags().Uint32Var(&id, "id", 0, "target window's CG window id")
	cmd.Flags().IntVar(&cols, "cols", 2, "grid column count")
	cmd.Flags().IntVar(&rows, "rows", 1, "grid row count")
	cmd.Flags().IntVar(&col, "col", 0, "target column (0-indexed)")
	cmd.Flags().IntVar(&row, "row", 0, "target row (0-indexed)")
	return cmd
}

func newRaiseCmd() *cobra.Command {
	var appPattern, titlePattern string
	cmd := &cobra.Command{
		Use:   "raise",
		Short: "Raise (or cycle through) windows matching an app/title pattern",
		RunE: func(cmd *cobra.Command, args []string) error {
			if appPattern == "" && titlePattern == "" {
				return fmt.Errorf("raise requires --app or --title")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			w, stop := startWorld(cmd.Context(), cfg)
			defer stop()
			time.Sleep(cfg.AXPoolDeadline)

			intent := world.RaiseIntent{}
			if appPattern != "" {
				re, err := regexp.Compile(appPattern)
				if err != nil {
					return err
				}
				intent.AppRegex = re
			}
			if titlePattern != "" {
				re, err := regexp.Compile(titlePattern)
				if err != nil {
					return err
				}
				intent.TitleRegex = re
			}
			receipt := w.RequestRaise(intent)
			fmt.Fprintf(cmd.OutOrStdout(), "receipt=%s\n", receipt.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&appPattern, "app", "", "application name regex")
	cmd.Flags().StringVar(&titlePattern, "title", "", "window title regex")
	return cmd
}
