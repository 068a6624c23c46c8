// Odump inspects Oriole bytecode images: header, packages, and
// per-function disassembly.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/oriole-lang/oriole/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (0=quiet, 1=info, 2=debug)")
	fnFilter := flag.Int("fn", -1, "Disassemble only the function with this key")
	headerOnly := flag.Bool("header", false, "Print the image header and package summary only")
	configPath := flag.String("config", "", "Path to an oriole.toml runtime config")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: odump [options] <image>\n\n")
		fmt.Fprintf(os.Stderr, "Prints the contents of an Oriole bytecode image.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  odump prog.orbc            # Dump everything\n")
		fmt.Fprintf(os.Stderr, "  odump -header prog.orbc    # Header and packages only\n")
		fmt.Fprintf(os.Stderr, "  odump -fn 3 prog.orbc      # One function\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	commonlog.Configure(*verbosity, nil)

	cfg := vm.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = vm.LoadConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading image: %v\n", err)
		os.Exit(1)
	}

	im, err := vm.DecodeImage(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding image: %v\n", err)
		os.Exit(1)
	}

	gcv := vm.NewGcObjsWith(cfg.GCInterval())
	objs, entryPkg, entryFunc, err := im.Restore(gcv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error restoring image: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("image %s\n", flag.Arg(0))
	fmt.Printf("  format  v%d\n", vm.ImageVersion)
	fmt.Printf("  build   %s\n", im.BuildID)
	fmt.Printf("  types   %d\n", objs.Metas.Len())
	fmt.Printf("  funcs   %d\n", objs.Funcs.Len())
	fmt.Printf("  pkgs    %d\n", objs.Pkgs.Len())
	fmt.Printf("  entry   pkg=%d func=%d\n\n", entryPkg, entryFunc)

	for i := 0; i < objs.Pkgs.Len(); i++ {
		p := objs.Pkgs.Get(vm.PkgKey(i))
		fmt.Printf("package %d %q (%d members)\n", i, p.Name(), p.MemberCount())
	}
	fmt.Println()

	if *headerOnly {
		return
	}

	for i := 0; i < objs.Funcs.Len(); i++ {
		if *fnFilter >= 0 && i != *fnFilter {
			continue
		}
		f := objs.Funcs.Get(vm.FuncKey(i))
		name := fmt.Sprintf("func %d (pkg %d)", i, f.Pkg)
		fmt.Println(f.DisassembleWithName(name))
	}
}
