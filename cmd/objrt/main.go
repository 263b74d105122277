package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/objrt/heap"
	"github.com/wippyai/objrt/object"
	"github.com/wippyai/objrt/vm"
)

func main() {
	var (
		typeName    = flag.String("type", "", "Type to call")
		argList     = flag.String("args", "", "Positional arguments (comma-separated)")
		kwList      = flag.String("kw", "", "Keyword arguments (name=value,...)")
		list        = flag.Bool("list", false, "List types with their MRO and exit")
		check       = flag.String("check", "", "Report whether A is a subtype of B (A,B)")
		configFile  = flag.String("config", "", "Path to a TOML config file")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *typeName == "" && !*list && *check == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: objrt -type <name> [-args a,b] [-kw k=v,...]")
		fmt.Fprintln(os.Stderr, "       objrt -list")
		fmt.Fprintln(os.Stderr, "       objrt -check A,B")
		fmt.Fprintln(os.Stderr, "       objrt -i  (interactive mode)")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Verbose = true
	}

	log := newLogger(cfg.Verbose)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	s, err := openSession(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *interactive:
		err = runInteractive(s)
	case *list:
		err = runList(s)
	case *check != "":
		err = runCheck(s, *check)
	default:
		err = runCall(s, *typeName, *argList, *kwList)
	}
	s.Close(ctx)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	heap.SetLogger(log.Named("heap"))
	vm.SetLogger(log.Named("vm"))
	object.SetLogger(log.Named("object"))
	return log
}

var (
	nameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98FB98"))
	mroStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func runList(s *session) error {
	infos, err := s.list()
	if err != nil {
		return err
	}
	styled := isTTY()
	for _, ti := range infos {
		name, mro := ti.name, strings.Join(ti.mro, " -> ")
		if styled {
			name, mro = nameStyle.Render(name), mroStyle.Render(mro)
		}
		fmt.Printf("%-24s %s\n", name, mro)
	}
	return nil
}

func runCheck(s *session, pair string) error {
	a, b, ok := strings.Cut(pair, ",")
	if !ok {
		return fmt.Errorf("-check wants A,B")
	}
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	sub, err := s.check(a, b)
	if err != nil {
		return err
	}
	rev, err := s.check(b, a)
	if err != nil {
		return err
	}
	fmt.Printf("%s is a subtype of %s: %v\n", a, b, sub)
	fmt.Printf("%s is a subtype of %s: %v\n", b, a, rev)
	return nil
}

func runCall(s *session, name, argList, kwList string) error {
	var args []string
	if argList != "" {
		args = strings.Split(argList, ",")
	}
	kwargs, err := parseKeywords(kwList)
	if err != nil {
		return err
	}

	fmt.Printf("Calling %s(%s)...\n", name, strings.Join(args, ", "))
	result, err := s.call(name, args, kwargs)
	if err != nil {
		return fmt.Errorf("call %s: %w", name, err)
	}
	fmt.Printf("Result: %s\n", result)
	return nil
}
