package main

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rlindgren/aidk/internal/scenario"
	"github.com/rlindgren/aidk/pkg/aidk"
	"github.com/rlindgren/aidk/pkg/renderer"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run compileUntilStable whenever the scenario config file changes",
		Long: `Watches --config (required) with fsnotify and, on every write,
re-runs the demo scenario through CompileUntilStable, printing the
recompile reasons accumulated during stabilization.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("watch requires --config")
			}
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			defer watcher.Close()

			dir := filepath.Dir(configPath)
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}

			runOnce := func() error {
				fc, err := loadFileConfig(configPath)
				if err != nil {
					return err
				}
				aidkCfg := fc.toAidkConfig()
				aidkCfg.DefaultRenderer = renderer.Default
				compiler := aidk.NewCompiler(scenario.NewCOM(), aidkCfg)
				element := scenario.Build(scenario.Config{Goal: fc.Goal})

				var result *aidk.StabilizationResult
				for tick := 0; tick < fc.Ticks; tick++ {
					compiler.NotifyTickStart(tick)
					result, err = compiler.CompileUntilStable(element, tick, 0)
					if err != nil {
						return fmt.Errorf("tick %d: %w", tick, err)
					}
					if err := compiler.NotifyTickEnd(tick); err != nil {
						return fmt.Errorf("tick %d: %w", tick, err)
					}
				}
				if result == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "recompiled: 0 ticks configured, nothing ran")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recompiled: iterations=%d forcedStable=%v reasons=%v\n",
					result.Iterations, result.ForcedStable, result.RecompileReasons)
				return nil
			}

			if err := runOnce(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s for changes (ctrl-c to stop)\n", configPath)

			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(event.Name) != filepath.Clean(configPath) {
						continue
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					if err := runOnce(); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintln(cmd.ErrOrStderr(), "watch error:", err)
				}
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML scenario config to watch (required)")
	return cmd
}
