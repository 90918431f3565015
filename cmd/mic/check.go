package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manwar/Mic/catalog"
	"github.com/manwar/Mic/manifest"
	"github.com/manwar/Mic/wire"
)

// loadManifest loads the named manifest, or searches upward from the
// working directory when none is named.
func loadManifest(args []string) (*manifest.Manifest, error) {
	if len(args) > 0 {
		return manifest.Load(args[0])
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("no mic.toml found")
	}
	return m, nil
}

// runCheck processes `mic check`.
func runCheck(args []string, out io.Writer) error {
	m, err := loadManifest(args)
	if err != nil {
		return err
	}

	components, err := m.DryRun()
	for _, c := range components {
		fmt.Fprintf(out, "ok   %s\n", c.Name())
		fmt.Fprintf(out, "     does  %s\n", strings.Join(c.Interfaces(), " "))
		fmt.Fprintf(out, "     can   %s\n", strings.Join(c.Operations(), " "))
		if ops := c.ClassOperations(); len(ops) > 1 {
			fmt.Fprintf(out, "     class %s\n", strings.Join(ops, " "))
		}
	}
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(out, "FAIL %s\n", line)
		}
		return fmt.Errorf("%s: %d of %d components failed", m.Path, len(m.Components)-len(components), len(m.Components))
	}
	return nil
}

// runExport processes `mic export`.
func runExport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	output := fs.String("o", "", "Write a CBOR bundle to this file")
	dbPath := fs.String("db", "", "Store descriptors in this catalog")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" && *dbPath == "" {
		return fmt.Errorf("%w: export needs -o or -db", errUsage)
	}

	m, err := loadManifest(fs.Args())
	if err != nil {
		return err
	}
	descs, err := m.Describe()
	if err != nil {
		return err
	}

	if *output != "" {
		b, err := wire.NewBundle(m.Project.Name, descs)
		if err != nil {
			return err
		}
		data, err := wire.MarshalBundle(b)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*output, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d descriptors to %s\n", len(descs), *output)
	}

	if *dbPath != "" {
		s, err := catalog.Open(*dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.PutAll(descs); err != nil {
			return err
		}
		fmt.Fprintf(out, "stored %d descriptors in %s\n", len(descs), *dbPath)
	}
	return nil
}
