package main

import (
	"fmt"

	"github.com/rlindgren/aidk/internal/scenario"
	"github.com/rlindgren/aidk/pkg/aidk"
	"github.com/rlindgren/aidk/pkg/renderer"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCompileCommand() *cobra.Command {
	var (
		configPath string
		ticksFlag  int
		goalFlag   string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Run the demo scenario through compileUntilStable and dump the result",
		Long: `Runs the built-in demo scenario (internal/scenario) through
NotifyTickStart -> CompileUntilStable -> NotifyTickEnd for the configured
number of ticks, then prints the final CompiledStructure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ticks") {
				fc.Ticks = ticksFlag
			}
			if cmd.Flags().Changed("goal") {
				fc.Goal = goalFlag
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
			compiler.NotifyComplete(fc.Ticks)

			return printResult(cmd, result, format)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML scenario config")
	cmd.Flags().IntVar(&ticksFlag, "ticks", 3, "Number of ticks to run")
	cmd.Flags().StringVar(&goalFlag, "goal", "", "Override the demo scenario's goal text")
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or text")
	return cmd
}

func printResult(cmd *cobra.Command, result *aidk.StabilizationResult, format string) error {
	if result == nil {
		return nil
	}
	switch format {
	case "text":
		r := renderer.Default
		for _, s := range result.Compiled.SectionsInOrder() {
			text, err := r.RenderSection(s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "=== %s ===\n%s\n\n", s.ID, text)
		}
		for _, e := range result.Compiled.TimelineEntries {
			text, err := r.RenderTimelineEntry(e)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\niterations=%d forcedStable=%v reasons=%v\n",
			result.Iterations, result.ForcedStable, result.RecompileReasons)
		return nil
	default:
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		out := map[string]any{
			"structure":         newStructureView(result.Compiled),
			"iterations":        result.Iterations,
			"forced_stable":     result.ForcedStable,
			"recompile_reasons": result.RecompileReasons,
		}
		return enc.Encode(out)
	}
}
