// Command konpeito is the ahead-of-time compiler's CLI front end. It
// wires internal/pipeline up to a cobra command tree, matching the
// subcommand/flag conventions the teacher's cmd/ailang/main.go uses for
// its own pipeline invocations.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "konpeito",
		Short: "Konpeito compiles a statically-typable Ruby subset ahead of time",
	}
	root.AddCommand(newCheckCmd(), newBuildCmd(), newEmitIRCmd())
	return root
}

func commonFlags(cmd *cobra.Command, cfg *pipeline.Config) {
	cmd.Flags().StringSliceVar(&cfg.SearchRoots, "search-root", nil, "additional import search roots")
	cmd.Flags().StringSliceVar(&cfg.SignatureFiles, "signature", nil, "explicit .sig.rb signature files")
	cmd.Flags().BoolVar(&cfg.InlineSignatures, "inline-signatures", true, "auto-detect .sig.rb siblings")
	cmd.Flags().BoolVar(&cfg.Trace, "trace", false, "trace pipeline phases to stderr")
	cmd.Flags().BoolVar(&cfg.CacheRegistry, "cache-registry", false, "cache the signature registry across runs")
	cmd.Flags().StringVar(&cfg.CachePath, "cache-path", "konpeito.sigcache.db", "signature cache database path")
}

func newCheckCmd() *cobra.Command {
	var cfg pipeline.Config
	cmd := &cobra.Command{
		Use:   "check <entry>",
		Short: "Run resolution, type inference and IR lowering without optimizing, report diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.EntrySource = args[0]
			result := pipeline.Run(cfg, fileSystemLoader{})
			printDiagnostics(result.Diagnostics)
			if !result.Succeeded {
				return fmt.Errorf("check failed")
			}
			return nil
		},
	}
	commonFlags(cmd, &cfg)
	return cmd
}

func newBuildCmd() *cobra.Command {
	var cfg pipeline.Config
	cmd := &cobra.Command{
		Use:   "build <entry>",
		Short: "Compile to IR and run optimization passes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.EntrySource = args[0]
			cfg.Optimize = true
			result := pipeline.Run(cfg, fileSystemLoader{})
			printDiagnostics(result.Diagnostics)
			if result.LICMStats.Hoisted > 0 {
				fmt.Println(color.CyanString("licm: hoisted %d instruction(s)", result.LICMStats.Hoisted))
			}
			if !result.Succeeded {
				return fmt.Errorf("build failed")
			}
			return nil
		},
	}
	commonFlags(cmd, &cfg)
	return cmd
}

func newEmitIRCmd() *cobra.Command {
	var cfg pipeline.Config
	cmd := &cobra.Command{
		Use:   "emit-ir <entry>",
		Short: "Print the lowered IR without optimizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.EntrySource = args[0]
			cfg.EmitIR = true
			result := pipeline.Run(cfg, fileSystemLoader{})
			printDiagnostics(result.Diagnostics)
			if result.Program != nil {
				fmt.Print(ir.Dump(result.Program))
			}
			if !result.Succeeded {
				return fmt.Errorf("emit-ir failed")
			}
			return nil
		},
	}
	commonFlags(cmd, &cfg)
	return cmd
}

func printDiagnostics(ds []diagnostics.Diagnostic) {
	if len(ds) == 0 {
		return
	}
	fmt.Print(diagnostics.ColorRender(ds))
}
