// Command archetypal validates, converts and stores building energy input
// documents against a schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	archetypal "github.com/samuelduchesne/archetypal-core"
	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/i18n"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `archetypal CLI

Usage:
  archetypal validate -config cfg.yaml | -schema S  FILE
  archetypal convert  -config cfg.yaml | -schema S  -to idf|epjson [-o OUT] FILE
  archetypal store    -config cfg.yaml | -schema S  -db DB save KEY FILE
  archetypal store    -config cfg.yaml | -schema S  -db DB [-to idf|epjson] load KEY
  archetypal store    -db DB list
  archetypal store    -db DB delete KEY`)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "validate":
		return validateCmd(ctx, args[1:], stdout, stderr)
	case "convert":
		return convertCmd(ctx, args[1:], stdout, stderr)
	case "store":
		return storeCmd(ctx, args[1:], stdout, stderr)
	}
	usage(stderr)
	return 2
}

// common holds the flags every subcommand shares.
type common struct {
	config      string
	schema      string
	accelerated bool
	verbose     bool
	lang        string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "YAML configuration file")
	fs.StringVar(&c.schema, "schema", "", "schema file (native JSON/YAML or epJSON schema)")
	fs.BoolVar(&c.accelerated, "accelerated", false, "use the native legacy tokenizer")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	fs.StringVar(&c.lang, "lang", "en", "diagnostic language: en or ja")
}

func (c *common) session(ctx context.Context, stderr io.Writer) (*archetypal.Session, error) {
	cfg := archetypal.DefaultConfig()
	if c.config != "" {
		var err error
		if cfg, err = archetypal.LoadConfig(c.config); err != nil {
			return nil, err
		}
	}
	if c.schema != "" {
		cfg.Schema.Path = c.schema
	}
	if c.accelerated {
		cfg.Parse.Accelerated = true
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	cfg.Schema.Watch = false
	i18n.SetLanguage(c.lang)
	return archetypal.NewSession(ctx, cfg, archetypal.SessionOpt{LogOutput: stderr})
}

func (c *common) parseFile(ctx context.Context, path string, stderr io.Writer) (*idf.Document, diag.Issues, error) {
	s, err := c.session(ctx, stderr)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return s.Parse(ctx, data)
}

func printIssues(w io.Writer, iss diag.Issues) {
	for _, it := range iss {
		fmt.Fprintln(w, it.String())
	}
}

func validateCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		usage(stderr)
		return 2
	}
	doc, iss, err := c.parseFile(ctx, fs.Arg(0), stderr)
	if err != nil {
		fmt.Fprintf(stderr, "validate: %v\n", err)
		return 1
	}
	iss = append(iss, archetypal.Validate(doc)...)
	iss = dedupe(iss)
	printIssues(stdout, iss)
	if len(iss) > 0 {
		fmt.Fprintf(stdout, "%d objects, %d issues\n", doc.Len(), len(iss))
		return 1
	}
	fmt.Fprintf(stdout, "%d objects, ok\n", doc.Len())
	return 0
}

// dedupe drops issues reported by both parsing and validation.
func dedupe(iss diag.Issues) diag.Issues {
	type key struct{ path, code string }
	seen := make(map[key]bool, len(iss))
	out := iss[:0]
	for _, it := range iss {
		k := key{it.Path, it.Code}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

func convertCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	to := fs.String("to", "epjson", "output format: idf or epjson")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		usage(stderr)
		return 2
	}
	format, ok := archetypal.ParseDocumentFormat(*to)
	if !ok {
		fmt.Fprintf(stderr, "convert: unknown format %q\n", *to)
		return 2
	}
	doc, iss, err := c.parseFile(ctx, fs.Arg(0), stderr)
	if err != nil {
		fmt.Fprintf(stderr, "convert: %v\n", err)
		return 1
	}
	printIssues(stderr, iss)
	return emit(doc, format, *out, stdout, stderr)
}

func emit(doc *idf.Document, format archetypal.DocumentFormat, out string, stdout, stderr io.Writer) int {
	b, err := archetypal.SerializeDocument(doc, archetypal.SerializeOpt{Format: format})
	if err != nil {
		fmt.Fprintf(stderr, "write: %v\n", err)
		return 1
	}
	if out == "" {
		stdout.Write(b)
		return 0
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		fmt.Fprintf(stderr, "write: %v\n", err)
		return 1
	}
	return 0
}

func storeCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("store", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	dsn := fs.String("db", "archetypal.db", "SQLite database file")
	to := fs.String("to", "idf", "output format for load: idf or epjson")
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		usage(stderr)
		return 2
	}
	db, err := store.Open(*dsn)
	if err != nil {
		fmt.Fprintf(stderr, "store: %v\n", err)
		return 1
	}
	defer db.Close()

	op, rest := fs.Arg(0), fs.Args()[1:]
	switch {
	case op == "save" && len(rest) == 2:
		doc, iss, err := c.parseFile(ctx, rest[1], stderr)
		if err != nil {
			fmt.Fprintf(stderr, "store: %v\n", err)
			return 1
		}
		printIssues(stderr, iss)
		if err := db.Save(ctx, rest[0], doc); err != nil {
			fmt.Fprintf(stderr, "store: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "saved %s: %d objects\n", rest[0], doc.Len())
		return 0

	case op == "load" && len(rest) == 1:
		format, ok := archetypal.ParseDocumentFormat(*to)
		if !ok {
			fmt.Fprintf(stderr, "store: unknown format %q\n", *to)
			return 2
		}
		s, err := c.session(ctx, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "store: %v\n", err)
			return 1
		}
		doc, iss, err := db.Load(ctx, rest[0], s.Registry())
		if err != nil {
			fmt.Fprintf(stderr, "store: %v\n", err)
			return 1
		}
		printIssues(stderr, iss)
		return emit(doc, format, "", stdout, stderr)

	case op == "list" && len(rest) == 0:
		list, err := db.List(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "store: %v\n", err)
			return 1
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVERSION\tOBJECTS\tSAVED")
		for _, in := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", in.Key, in.SchemaVersion, in.Objects, in.SavedAt.Format("2006-01-02 15:04:05"))
		}
		tw.Flush()
		return 0

	case op == "delete" && len(rest) == 1:
		if err := db.Delete(ctx, rest[0]); err != nil {
			fmt.Fprintf(stderr, "store: %v\n", err)
			return 1
		}
		return 0
	}
	usage(stderr)
	return 2
}
