// Package main provides surf, a CLI that manages long-lived named browser
// sessions over the Chrome DevTools Protocol and prints prioritized
// accessibility snapshots of the pages they are on. Each invocation
// attaches (or launches), performs one command, and exits; the browser
// outlives the CLI process.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/entrhq/surf/pkg/browser"
	"github.com/entrhq/surf/pkg/config"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/profile"
	"github.com/entrhq/surf/pkg/session"
	"github.com/entrhq/surf/pkg/snapshot"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks a missing or malformed positional argument. The
// dispatcher prints usage alongside it and exits 1 with no side effects.
type usageError string

func (e usageError) Error() string { return string(e) }

func run(args []string, stdout, stderr io.Writer) int {
	// The hidden launcher child parses its own flags (including --headed),
	// so it dispatches before global flag stripping.
	if len(args) > 0 && args[0] == "__launch" {
		if err := runLauncher(args[1:]); err != nil {
			fmt.Fprintf(stderr, "surf: %v\n", err)
			return 1
		}
		return 0
	}

	rest, sessionName, headed, err := stripGlobalFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "surf: %v\n\n", err)
		printUsage(stderr)
		return 1
	}

	if len(rest) == 0 {
		printUsage(stdout)
		return 0
	}

	command := rest[0]
	positional := rest[1:]

	if command == "help" || command == "--help" || command == "-h" {
		printUsage(stdout)
		return 0
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(stderr, "surf: %v\n", err)
		return 1
	}
	if sessionName == "" {
		sessionName = cfg.DefaultSession
	}

	log, _ := logging.NewLogger("cli")
	defer log.Close()

	a, err := newApp(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "surf: %v\n", err)
		return 1
	}

	var cmdErr error
	switch command {
	case "open":
		cmdErr = a.open(positional, sessionName, headed, stdout)
	case "connect":
		cmdErr = a.connect(positional, sessionName, stdout)
	case "snapshot":
		cmdErr = a.snapshot(sessionName, stdout)
	case "save":
		cmdErr = a.save(positional, sessionName, stdout)
	case "exec":
		cmdErr = a.exec(positional, sessionName, stdout)
	case "screenshot":
		cmdErr = a.screenshot(sessionName, stdout)
	case "close":
		cmdErr = a.close(sessionName, stdout)
	default:
		fmt.Fprintf(stderr, "surf: unknown command %q\n\n", command)
		printUsage(stderr)
		return 1
	}

	if cmdErr != nil {
		log.Errorf("%s failed: %v", command, cmdErr)
		var uerr usageError
		if errors.As(cmdErr, &uerr) {
			fmt.Fprintf(stderr, "surf: %v\n\n", cmdErr)
			printUsage(stderr)
			return 1
		}
		fmt.Fprintf(stderr, "surf: %v\n", cmdErr)
		return 1
	}
	return 0
}

// app wires the stores and managers one command invocation needs.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	store    *session.Store
	profiles *profile.Manager
	manager  *browser.Manager
	builder  *snapshot.Builder
}

func newApp(cfg *config.Config, log *logging.Logger) (*app, error) {
	store, err := session.NewStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	builder, err := snapshot.NewBuilder(cfg.ActionPatterns)
	if err != nil {
		return nil, err
	}

	profiles := profile.NewManager(cfg.ProfileDir, log)

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		profiles: profiles,
		manager:  browser.NewManager(cfg, store, profiles, log),
		builder:  builder,
	}, nil
}

// stripGlobalFlags removes --session <name> (or --session=<name>) and
// --headed from the argument list, uniformly for every command, returning
// the remaining positional arguments. A trailing --session with no value is
// an error rather than a silent fallback to the default session.
func stripGlobalFlags(args []string) (rest []string, sessionName string, headed bool, err error) {
	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--session":
			if i+1 >= len(args) {
				return nil, "", false, usageError("--session requires a value")
			}
			sessionName = args[i+1]
			i++
		case strings.HasPrefix(arg, "--session="):
			sessionName = strings.TrimPrefix(arg, "--session=")
		case arg == "--headed":
			headed = true
		default:
			rest = append(rest, arg)
		}
	}
	return rest, sessionName, headed, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `surf - named browser automation sessions over CDP

Usage: surf <command> [args] [--session <name>] [--headed]

Commands:
  open <url> [--headed]   reuse or launch the session and navigate to <url>
  connect <cdp-url>       register an externally running browser (http://host:port)
  snapshot                print the enriched accessibility snapshot of the active page
  save <url|domain>       persist cookies and local storage for the domain
  exec <code>             run an instruction (click/fill/goto/wait) or JavaScript
  screenshot              write a full-page PNG and HTML dump of the active page
  close                   terminate or disconnect the session
  help                    print this message

Flags:
  --session <name>        session name (default %q)
  --headed                open: show the browser window
`, config.DefaultSessionName)
}
