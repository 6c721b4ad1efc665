package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rlindgren/aidk/internal/inspector"
	"github.com/rlindgren/aidk/internal/scenario"
	"github.com/rlindgren/aidk/pkg/aidk"
	"github.com/rlindgren/aidk/pkg/renderer"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		tickEvery  time.Duration
		maxTicks   int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo scenario's CompiledStructure deltas over a websocket",
		Long: `Starts an HTTP server exposing a websocket at /inspector/ws that
streams a structdiff.Patch list after every tick of the demo scenario
(internal/inspector).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}
			aidkCfg := fc.toAidkConfig()
			aidkCfg.DefaultRenderer = renderer.Default
			compiler := aidk.NewCompiler(scenario.NewCOM(), aidkCfg)
			element := scenario.Build(scenario.Config{Goal: fc.Goal})

			srv := inspector.NewServer(nil)
			mux := http.NewServeMux()
			mux.HandleFunc("/inspector/ws", srv.HandleWebSocket)
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintln(w, "aidkc inspector: connect a websocket client to /inspector/ws")
			})

			httpSrv := &http.Server{Addr: addr, Handler: mux}
			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.ListenAndServe() }()
			fmt.Fprintf(cmd.OutOrStdout(), "aidkc inspector listening on %s\n", addr)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			tickErrCh := make(chan error, 1)
			go func() { tickErrCh <- srv.RunTicks(ctx, compiler, element, tickEvery, maxTicks) }()

			select {
			case err := <-errCh:
				return err
			case err := <-tickErrCh:
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				httpSrv.Shutdown(shutdownCtx)
				if err != nil && err != context.Canceled {
					return err
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML scenario config")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8787", "HTTP listen address")
	cmd.Flags().DurationVar(&tickEvery, "tick-every", 2*time.Second, "Interval between scenario ticks")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "Stop after this many ticks (0 = unbounded)")
	return cmd
}
