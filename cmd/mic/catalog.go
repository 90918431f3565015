package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/manwar/Mic/catalog"
	"github.com/manwar/Mic/wire"
)

// runCatalog processes `mic catalog`.
// Usage:
//
//	mic catalog <db>               List stored components
//	mic catalog <db> <name>        Print one descriptor
//	mic catalog -does <iface> <db> List components satisfying iface
//	mic catalog -can <op> <db>     List components exposing op
func runCatalog(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	does := fs.String("does", "", "List components satisfying this interface")
	can := fs.String("can", "", "List components exposing this operation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: catalog needs a database path", errUsage)
	}

	s, err := catalog.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer s.Close()

	var names []string
	switch {
	case fs.NArg() > 1:
		d, err := s.Get(fs.Arg(1))
		if err != nil {
			return err
		}
		return printYAML(out, d)
	case *does != "":
		names, err = s.Implementers(*does)
	case *can != "":
		names, err = s.Supporting(*can)
	default:
		names, err = s.Names()
	}
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}

// runDecode processes `mic decode`.
func runDecode(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: decode needs one file", errUsage)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	b, err := wire.UnmarshalBundle(data)
	if err != nil {
		return err
	}
	if b.Project != "" {
		fmt.Fprintf(out, "# project %s\n", b.Project)
	}
	return printYAML(out, b.Descriptors())
}

func printYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
