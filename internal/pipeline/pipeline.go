// Package pipeline orchestrates one compile end-to-end: dependency
// resolution, signature registration, Hindley-Milner inference, typed-tree
// decoration, IR lowering and the optimization passes, in that order.
// Grounded on the teacher's internal/pipeline/pipeline.go staged-Config
// shape and its TraceDefaulting/LedgerHook instrumentation convention,
// adapted here to Konpeito's resolver->infer->irbuild->optimize stages.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/infer"
	"github.com/konpeito/konpeito/internal/inline"
	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/irbuild"
	"github.com/konpeito/konpeito/internal/licm"
	"github.com/konpeito/konpeito/internal/mono"
	"github.com/konpeito/konpeito/internal/resolver"
	"github.com/konpeito/konpeito/internal/signature"
	"github.com/konpeito/konpeito/internal/typedtree"
	"github.com/konpeito/konpeito/internal/types"
)

// Config controls one pipeline invocation. It mirrors the teacher's own
// staged Config struct: every field names one tunable knob a caller might
// want to vary between runs without touching the orchestration code.
type Config struct {
	EntrySource      string   `yaml:"entry_source"`
	SearchRoots      []string `yaml:"search_roots"`
	SignatureFiles   []string `yaml:"signature_files"`
	InlineSignatures bool     `yaml:"inline_signatures"`
	Optimize         bool     `yaml:"optimize"`
	EmitIR           bool     `yaml:"emit_ir"`
	Trace            bool     `yaml:"trace"`
	CacheRegistry    bool     `yaml:"cache_registry"`
	CachePath        string   `yaml:"cache_path"`
}

// LoadConfig reads a YAML-encoded Config from path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("pipeline: reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("pipeline: parsing config: %w", err)
	}
	return cfg, nil
}

// Result is everything a pipeline run produced, good or bad: the
// diagnostics collected across every phase, and however much IR was
// successfully built before any Fatal diagnostic stopped the run.
type Result struct {
	Diagnostics []diagnostics.Diagnostic
	Program     *ir.Program
	LICMStats   licm.Stats
	Succeeded   bool
}

// Run executes every phase in order, stopping early if the resolver or
// inferrer reports a Fatal diagnostic (§4.11 failure semantics).
func Run(cfg Config, loader resolver.SourceLoader) Result {
	diags := diagnostics.NewCollector()
	if cfg.Trace {
		diags.SetTrace(func(stage, msg string) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", stage, msg)
		})
	}

	diags.Trace("resolve", "resolving %s", cfg.EntrySource)
	resolved, err := resolver.Resolve(cfg.EntrySource, loader)
	if err != nil {
		diags.Report(resolver.ReportFatal(err))
		return finish(diags, nil, licm.Stats{})
	}

	files := make([]*ast.File, 0, len(resolved.Order))
	for _, path := range resolved.Order {
		files = append(files, resolved.Files[path])
	}

	hierarchy := types.NewHierarchy()
	registry := signature.New(hierarchy)

	var cache *signature.Cache
	digest := sourceDigest(resolved.Order, cfg.SignatureFiles)
	if cfg.CacheRegistry && cfg.CachePath != "" {
		c, err := signature.OpenCache(cfg.CachePath)
		if err == nil {
			cache = c
			defer cache.Close()
			if snapshot, ok, err := cache.Load(digest); err == nil && ok {
				diags.Trace("cache", "signature cache hit for digest %s (%d entries)", digest, len(snapshot))
			} else if err != nil {
				diags.Trace("cache", "signature cache lookup failed: %v", err)
			} else {
				diags.Trace("cache", "signature cache miss for digest %s", digest)
			}
		}
	}

	diags.Trace("infer", "running inference over %d files", len(files))
	inferrer := infer.New(hierarchy, registry, diags)
	inferrer.Run(files)

	if cache != nil {
		if err := cache.Store(digest, registry.Snapshot()); err != nil {
			diags.Trace("cache", "signature cache store failed: %v", err)
		}
	}

	if diags.HasFatal() {
		return finish(diags, nil, licm.Stats{})
	}

	diags.Trace("typedtree", "decorating typed tree")
	tree := typedtree.Build(files, inferrer, diags)

	diags.Trace("irbuild", "lowering to IR")
	builder := irbuild.New(tree, diags)
	prog := builder.Build()

	if errs := ir.Verify(prog); len(errs) > 0 {
		for _, e := range errs {
			diags.Report(diagnostics.New(diagnostics.IRMalformed, e.Error()))
		}
	}

	var stats licm.Stats
	if cfg.Optimize {
		diags.Trace("mono", "monomorphizing")
		var sites []mono.CallSite
		irSites := builder.IRCallSites()
		for _, oc := range inferrer.CallSites() {
			if site, ok := irSites[oc.Node]; ok {
				sites = append(sites, mono.CallSite{
					Caller:   site.Fn,
					Call:     site.Call,
					Target:   oc.Name,
					ArgTypes: oc.ArgTypes,
				})
			}
		}
		monomorphizer := mono.New(diags)
		prog = monomorphizer.Run(prog, sites)

		diags.Trace("inline", "inlining")
		inliner := inline.New(diags)
		prog = inliner.Run(prog)

		diags.Trace("licm", "hoisting loop-invariant code")
		optimizer := licm.New()
		stats = optimizer.Run(prog)
	}

	return finish(diags, prog, stats)
}

// sourceDigest hashes every path that fed the signature registry — the
// resolved compile order plus the configured signature files — so a
// Cache.Load can tell whether the sources it was built from have changed
// since the last compile (§5). It hashes paths, not file contents: a file
// edited in place keeps the same digest, so a digest match shows only
// that the same set of paths was compiled.
func sourceDigest(order, signatureFiles []string) string {
	all := make([]string, 0, len(order)+len(signatureFiles))
	all = append(all, order...)
	all = append(all, signatureFiles...)
	sort.Strings(all)
	h := sha256.New()
	h.Write([]byte(strings.Join(all, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

func finish(diags *diagnostics.Collector, prog *ir.Program, stats licm.Stats) Result {
	return Result{
		Diagnostics: diags.All(),
		Program:     prog,
		LICMStats:   stats,
		Succeeded:   diags.Succeeded(),
	}
}
