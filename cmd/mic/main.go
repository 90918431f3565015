// Mic CLI - checks component manifests and queries descriptor catalogs
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var errUsage = errors.New("usage")

func main() {
	verbose := flag.Int("v", 0, "Log verbosity (0 = errors only, 1 = warnings, 2 = info, 3 = debug)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mic [options] <command> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Assembles the components declared in a mic.toml against stand-in\n")
		fmt.Fprintf(os.Stderr, "implementations and works with the resulting descriptors.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  check [manifest]                     Assemble every component and report errors\n")
		fmt.Fprintf(os.Stderr, "  export [-o file] [-db catalog] [manifest]  Write descriptors as a CBOR bundle and/or catalog\n")
		fmt.Fprintf(os.Stderr, "  catalog [-does iface] [-can op] <db> [name]  Query a descriptor catalog\n")
		fmt.Fprintf(os.Stderr, "  decode <file>                        Print a CBOR bundle as YAML\n")
		fmt.Fprintf(os.Stderr, "\nWithout a manifest argument, mic.toml is searched for upward from the\n")
		fmt.Fprintf(os.Stderr, "current directory.\n")
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	if err := run(flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "check":
		return runCheck(args[1:], out)
	case "export":
		return runExport(args[1:], out)
	case "catalog":
		return runCatalog(args[1:], out)
	case "decode":
		return runDecode(args[1:], out)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}
