// Command x11anywhere runs a standalone X11 display server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KarpelesLab/x11anywhere/internal/backend"
	_ "github.com/KarpelesLab/x11anywhere/internal/backend/null"
	"github.com/KarpelesLab/x11anywhere/internal/config"
	"github.com/KarpelesLab/x11anywhere/internal/logging"
	"github.com/KarpelesLab/x11anywhere/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	var development bool

	cmd := &cobra.Command{
		Use:   "x11anywhere",
		Short: "Portable X11 display server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list, _ := cmd.Flags().GetBool("list-backends"); list {
				for _, name := range backend.Available() {
					fmt.Println(name)
				}
				return nil
			}
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Verbose: cfg.Verbose, Development: development})
			if err != nil {
				return fmt.Errorf("constructing logger: %w", err)
			}
			defer log.Sync()

			return run(cfg, log)
		},
	}

	d := config.Defaults()
	flags := cmd.Flags()
	flags.Int("display", d.Display, "X display number")
	flags.String("backend", d.Backend, "rendering backend to use")
	flags.Bool("tcp", d.TCP, "accept TCP connections on 6000+display")
	flags.Bool("unix", d.Unix, "accept local-domain-socket connections")
	flags.String("security", string(d.Security), "auth policy: permissive, default, or strict")
	flags.String("vendor", d.Vendor, "vendor string reported in SetupReply")
	flags.Uint32("release-number", d.ReleaseNumber, "release number reported in SetupReply")
	flags.Bool("verbose", d.Verbose, "enable debug-level logging")
	flags.Bool("list-backends", false, "print available backends and exit")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file")
	cmd.PersistentFlags().BoolVar(&development, "dev", false, "use human-readable console logging")

	return cmd
}

// run constructs the server and blocks until SIGINT/SIGTERM, at which
// point it calls Quit and waits for Run to return once the accept loops
// have stopped. Connections still open end when the process exits.
func run(cfg config.Config, log *zap.Logger) error {
	srv, err := server.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
		srv.Quit()
		return <-errCh
	case err := <-errCh:
		return err
	}
}
