// Command bbasm assembles RV32IMAC assembly source into a flat binary image.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lookbusy1344/bbasm/internal/diag"
	"github.com/lookbusy1344/bbasm/internal/encoder"
	"github.com/lookbusy1344/bbasm/internal/expand"
	"github.com/lookbusy1344/bbasm/internal/expr"
	"github.com/lookbusy1344/bbasm/internal/image"
	"github.com/lookbusy1344/bbasm/internal/layout"
	"github.com/lookbusy1344/bbasm/internal/parser"
	"github.com/lookbusy1344/bbasm/internal/source"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)

// definitionsDirName is the bundled chip/peripheral definitions directory
// added to the search path by --include-definitions, resolved relative to
// the bbasm binary's own location.
const definitionsDirName = "definitions"

// includeDirs collects -i/--include values across repeated flag uses.
type includeDirs []string

func (d *includeDirs) String() string { return strings.Join(*d, ",") }
func (d *includeDirs) Set(v string) error {
	*d = append(*d, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("bbasm", flag.ContinueOnError)

	var includes includeDirs
	var (
		output           = fs.String("output", "bb.out", "output binary path")
		compress         = fs.Bool("compress", false, "enable C-extension compression pass")
		labelsPath       = fs.String("labels", "", "write a two-column labels-to-addresses listing")
		hexOffset        = fs.String("hex-offset", "", "also emit an Intel HEX file at this load offset")
		includeDefs      = fs.Bool("include-definitions", false, "extend the search path with the bundled chip/peripheral definitions directory")
		verbose          = fs.Bool("verbose", false, "verbose diagnostic output")
		veryVerbose      = fs.Bool("vv", false, "very verbose diagnostic output")
		showVersion      = fs.Bool("version", false, "print version and exit")
	)
	fs.StringVar(output, "o", "bb.out", "output binary path (shorthand)")
	fs.BoolVar(compress, "c", false, "enable C-extension compression pass (shorthand)")
	fs.StringVar(labelsPath, "l", "", "write a two-column labels-to-addresses listing (shorthand)")
	fs.BoolVar(verbose, "v", false, "verbose diagnostic output (shorthand)")
	fs.Var(&includes, "include", "append DIR to the include search path (repeatable)")
	fs.Var(&includes, "i", "append DIR to the include search path (repeatable, shorthand)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: bbasm [flags] SOURCE")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Printf("bbasm %s (%s)\n", Version, Commit)
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	entry := fs.Arg(0)

	searchPath := append([]string{}, includes...)
	if *includeDefs {
		exe, err := os.Executable()
		if err == nil {
			searchPath = append(searchPath, filepath.Join(filepath.Dir(exe), definitionsDirName))
		}
	}

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	if *veryVerbose {
		verbosity = 2
	}

	return assemble(entry, *output, *compress, searchPath, *labelsPath, *hexOffset, verbosity)
}

func assemble(entryPath, outputPath string, compress bool, searchPath []string, labelsPath, hexOffsetStr string, verbosity int) int {
	loader := source.NewLoader(searchPath)
	lines, err := loader.Load(entryPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logStage(verbosity, "loaded %d source line(s) from %s", len(lines), entryPath)

	items, errs := parser.Parse(lines)
	if report(errs) {
		return 1
	}
	logStage(verbosity, "parsed %d item(s)", len(items))

	if err := loader.ResolveIncludeBytes(items); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	scope, errs := expr.BuildConstantScope(items)
	if report(errs) {
		return 1
	}

	items, errs = expand.Expand(items)
	if report(errs) {
		return 1
	}
	logStage(verbosity, "expanded fixed-width pseudo-instructions")

	res, errs := layout.Resolve(items, scope, layout.Config{Compress: compress})
	if report(errs) {
		return 1
	}
	logStage(verbosity, "layout converged: %d byte(s), compression=%v", res.Size, compress)

	encScope := expr.NewScope()
	encScope.Defs = scope.Defs
	encScope.Values = scope.Values
	encScope.Labels = res.Labels

	out, errs := encoder.Encode(res.Items, encScope, encoder.Config{Endian: '<'})
	if report(errs) {
		return 1
	}
	logStage(verbosity, "encoded %d byte(s)", len(out))

	if err := image.WriteBinary(outputPath, out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if labelsPath != "" {
		if err := image.WriteLabels(labelsPath, res.Labels); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if hexOffsetStr != "" {
		offset, err := parseOffset(hexOffsetStr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := image.WriteHex(outputPath+".hex", out, offset); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	return 0
}

func report(errs *diag.List) bool {
	if errs == nil || !errs.HasErrors() {
		return false
	}
	fmt.Fprintln(os.Stderr, errs.Error())
	return true
}

func logStage(verbosity int, format string, args ...any) {
	if verbosity == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "bbasm: "+format+"\n", args...)
}

func parseOffset(s string) (uint32, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "0x%x", &v)
	if err != nil {
		_, err = fmt.Sscanf(s, "%d", &v)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid --hex-offset value %q", s)
	}
	return uint32(v), nil
}
