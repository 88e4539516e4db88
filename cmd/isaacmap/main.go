// cmd/isaacmap/main.go
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"symcore/internal/binder"
	"symcore/internal/cache"
	"symcore/internal/collab"
	"symcore/internal/config"
	"symcore/internal/driver"
	"symcore/internal/dtype"
	"symcore/internal/expr"
	"symcore/internal/kernerr"
	"symcore/internal/mapper"
	"symcore/internal/shape"
	"symcore/internal/trace"
)

const version = "0.1.0"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Println("isaacmap " + version)
	case "map":
		if err := mapCommand(args[1:]); err != nil {
			fail(err)
		}
	case "render":
		if err := renderCommand(args[1:]); err != nil {
			fail(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "isaacmap: unknown command %q\n", args[0])
		showUsage()
		os.Exit(1)
	}
}

func fail(err error) {
	if e, ok := kernerr.As(err); ok {
		fmt.Fprintf(os.Stderr, "isaacmap: %s\n", e.Error())
	} else {
		fmt.Fprintf(os.Stderr, "isaacmap: %v\n", err)
	}
	os.Exit(1)
}

func showUsage() {
	fmt.Println(`isaacmap — symbolic expression and kernel-mapping tool

Usage:
  isaacmap map [flags]       build a demo expression and print its mapping
  isaacmap render [flags]    render a demo expression's keyword tables
  isaacmap version           print the version
  isaacmap help              show this message

Flags (map, render):
  --cache-dsn <dsn>          enable the kernel cache against this DSN,
                             e.g. "sqlite3://./kernels.db" or a bare DSN
                             (driver defaults to sqlite3); only render
                             uses the cache, map accepts and ignores it
  --trace-addr <host:port>  serve mapping-trace websocket events on addr`)
}

// cliConfig holds the raw flag values (cache DSN, trace address) that
// mapperOptions turns into config.Option values — only this package ever
// reads flags/env and assembles a config.MapperConfig (SPEC_FULL.md §4.8).
type cliConfig struct {
	cacheDSN  string
	traceAddr string
}

// parseFlags scans args for the isaacmap-recognized "--flag value" pairs,
// matching the teacher's manual-loop style (no flag-parsing framework).
func parseFlags(args []string) (cliConfig, error) {
	var cfg cliConfig
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--cache-dsn":
			if i+1 >= len(args) {
				return cfg, fmt.Errorf("--cache-dsn requires a value")
			}
			i++
			cfg.cacheDSN = args[i]
		case "--trace-addr":
			if i+1 >= len(args) {
				return cfg, fmt.Errorf("--trace-addr requires a value")
			}
			i++
			cfg.traceAddr = args[i]
		default:
			return cfg, fmt.Errorf("unrecognized flag %q", args[i])
		}
	}
	return cfg, nil
}

// mapperOptions turns the parsed CLI flags into the config.Option values
// SPEC_FULL.md §4.8 says only this CLI assembles.
func (c cliConfig) mapperOptions() []config.Option {
	var opts []config.Option
	if c.cacheDSN != "" {
		opts = append(opts, config.WithCacheDSN(c.cacheDSN))
	}
	if c.traceAddr != "" {
		opts = append(opts, config.WithTrace(c.traceAddr))
	}
	return opts
}

// startTrace mounts a trace.Server at /trace on addr and returns the sink
// to pass into mapper.Build, or a nil sink if addr is empty.
func startTrace(addr string, logger *slog.Logger) mapper.Sink {
	if addr == "" {
		return nil
	}
	server := trace.NewServer(logger)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/trace", server)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("trace: server exited", "error", err)
		}
	}()
	logger.Info("trace: serving websocket events", "addr", addr, "path", "/trace")
	return server.Sink()
}

// openCache dials the kernel cache when cfg requests one, or returns nil
// if caching is disabled.
func openCache(cfg config.MapperConfig) (*cache.Cache, error) {
	if cfg.CacheDSN == "" {
		return nil, nil
	}
	driverName, dsn := splitCacheDSN(cfg.CacheDSN)
	return cache.Open(driverName, dsn)
}

// splitCacheDSN accepts either a bare DSN (sqlite3 is assumed) or a
// "driver://dsn" scheme-prefixed DSN, and splits it into the separate
// driver name and DSN that cache.Open takes.
func splitCacheDSN(raw string) (driverName, dsn string) {
	if i := strings.Index(raw, "://"); i >= 0 {
		return raw[:i], raw[i+len("://"):]
	}
	return "sqlite3", raw
}

func colorize(p collab.Painter, s, color string) string {
	if p == nil || !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}
	return p.Paint(s, color)
}

// ansiPainter is the CLI's own collab.Painter implementation: the actual
// ANSI-writing logic spec.md §1 keeps outside this module as an external
// collaborator stays here, at the one caller DESIGN.md names, rather than
// inside internal/collab itself.
type ansiPainter struct{}

var ansiCodes = map[string]string{"red": "31", "green": "32", "yellow": "33", "cyan": "36"}

func (ansiPainter) Paint(text, color string) string {
	code, ok := ansiCodes[color]
	if !ok {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

// demoExpression builds a small a = b + c array expression used by both
// subcommands, standing in for a caller-supplied one.
func demoExpression() (*expr.Expression, error) {
	ctx := driver.NewContext(1)
	sh := shape.Shape{4, 4}
	buf := driver.NewBuffer(1, sh.Prod()*8)

	a := expr.NewArray(dtype.Float64, sh, buf)
	b := expr.NewArray(dtype.Float64, sh, buf)
	c := expr.NewArray(dtype.Float64, sh, buf)

	sum, err := expr.New(
		expr.ArrayOperand{Array: b},
		expr.ArrayOperand{Array: c},
		expr.OpElement{Family: expr.FamilyBinary, Op: expr.OpAdd},
		ctx, dtype.Float64, sh,
	)
	if err != nil {
		return nil, err
	}

	return expr.New(
		expr.ArrayOperand{Array: a},
		expr.ExprOperand{Expr: sum},
		expr.OpElement{Family: expr.FamilyBinary, Op: expr.OpAssign},
		ctx, dtype.Float64, sh,
	)
}

func mapCommand(args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cliCfg, err := parseFlags(args)
	if err != nil {
		return err
	}
	mapperCfg := config.New(cliCfg.mapperOptions()...)

	sink := startTrace(mapperCfg.TraceAddr, logger)

	ex, err := demoExpression()
	if err != nil {
		return err
	}

	b := binder.New()
	m, err := mapper.Build(ex, b, sink)
	if err != nil {
		return err
	}

	painter := ansiPainter{}
	fmt.Println(colorize(painter, fmt.Sprintf("mapped %s entries over %s elements", humanize.Comma(int64(m.Len())), humanize.Comma(ex.Shape.Prod())), "green"))
	for _, key := range m.Keys() {
		obj, _ := m.Get(key)
		fmt.Printf("  node=%d slot=%-6s type=%-12s name=%s\n", key.NodeIndex, key.Slot, obj.TypeKey, obj.Name)
	}
	return nil
}

func renderCommand(args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cliCfg, err := parseFlags(args)
	if err != nil {
		return err
	}
	mapperCfg := config.New(cliCfg.mapperOptions()...)

	sink := startTrace(mapperCfg.TraceAddr, logger)

	kernelCache, err := openCache(mapperCfg)
	if err != nil {
		return err
	}
	if kernelCache != nil {
		defer kernelCache.Close()
	}

	ex, err := demoExpression()
	if err != nil {
		return err
	}

	b := binder.New()
	m, err := mapper.Build(ex, b, sink)
	if err != nil {
		return err
	}

	render := func() (string, error) {
		out := make(map[string]map[string]string, m.Len())
		for _, key := range m.Keys() {
			obj, _ := m.Get(key)
			rendered, err := obj.Process("#scalartype #name = $VALUE{0,0};")
			if err != nil {
				logger.Warn("render failed", "node", key.NodeIndex, "slot", key.Slot, "error", err)
				continue
			}
			bucket := fmt.Sprintf("%d:%s", key.NodeIndex, key.Slot)
			out[bucket] = map[string]string{"type_key": obj.TypeKey, "rendered": rendered}
		}
		buf, err := json.MarshalIndent(out, "", "  ")
		return string(buf), err
	}

	var source string
	if kernelCache != nil {
		source, err = kernelCache.GetOrRender(cache.Digest(m), render)
	} else {
		source, err = render()
	}
	if err != nil {
		return err
	}

	fmt.Println(source)
	return nil
}
