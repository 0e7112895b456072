package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/entrhq/surf/pkg/browser"
	"github.com/entrhq/surf/pkg/config"
	"github.com/entrhq/surf/pkg/logging"
)

// open reuses or launches the named session, navigates it to the url, and
// prints the enriched snapshot of the resulting page.
func (a *app) open(args []string, sessionName string, headed bool, stdout io.Writer) error {
	if len(args) < 1 {
		return usageError("open requires a <url> argument")
	}
	targetURL := args[0]

	if err := a.manager.Launch(targetURL, headed, sessionName); err != nil {
		return err
	}
	return a.snapshot(sessionName, stdout)
}

// connect registers an operator-launched browser as an external session.
func (a *app) connect(args []string, sessionName string, stdout io.Writer) error {
	if len(args) < 1 {
		return usageError("connect requires a <cdp-url> argument")
	}
	if err := a.manager.Register(sessionName, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "registered session %q at %s\n", sessionName, args[0])
	return nil
}

// snapshot prints the enriched accessibility snapshot of the active page.
func (a *app) snapshot(sessionName string, stdout io.Writer) error {
	handle, err := a.manager.Connect(sessionName, browser.ConnectTimeout)
	if err != nil {
		return err
	}
	defer handle.Close()

	report, err := a.builder.Build(handle.Page)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, report)
	return nil
}

// save persists cookies and local storage for the argument's domain.
func (a *app) save(args []string, sessionName string, stdout io.Writer) error {
	if len(args) < 1 {
		return usageError("save requires a <url|domain> argument")
	}

	handle, err := a.manager.Connect(sessionName, browser.ConnectTimeout)
	if err != nil {
		return err
	}
	defer handle.Close()

	path, err := a.profiles.Save(handle.Browser, handle.Page, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "profile saved to %s\n", path)
	return nil
}

// exec runs one instruction against the active page. The remaining
// arguments are joined into a single instruction string.
func (a *app) exec(args []string, sessionName string, stdout io.Writer) error {
	if len(args) < 1 {
		return usageError("exec requires an instruction or JavaScript expression")
	}

	instruction, err := browser.ParseInstruction(strings.Join(args, " "))
	if err != nil {
		return err
	}

	handle, err := a.manager.Connect(sessionName, browser.ConnectTimeout)
	if err != nil {
		return err
	}
	defer handle.Close()

	result, err := instruction.Apply(handle.Page)
	if err != nil {
		return err
	}

	if result != nil {
		data, jsonErr := json.MarshalIndent(result, "", "  ")
		if jsonErr != nil {
			fmt.Fprintf(stdout, "%v\n", result)
		} else {
			fmt.Fprintln(stdout, string(data))
		}
	}
	return nil
}

// screenshot writes a full-page PNG and HTML dump file pair for the active page.
func (a *app) screenshot(sessionName string, stdout io.Writer) error {
	handle, err := a.manager.Connect(sessionName, browser.ConnectTimeout)
	if err != nil {
		return err
	}
	defer handle.Close()

	pngPath, htmlPath, err := browser.Capture(handle.Page, ".")
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\n%s\n", pngPath, htmlPath)
	return nil
}

// close terminates (or, for external sessions, disconnects) the named session.
func (a *app) close(sessionName string, stdout io.Writer) error {
	if err := a.manager.Shutdown(sessionName); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "session %q closed\n", sessionName)
	return nil
}

// runLauncher is the hidden __launch subcommand: the detached child that
// owns the browser's lifetime and exits when its page closes.
func runLauncher(args []string) error {
	fs := flag.NewFlagSet("__launch", flag.ContinueOnError)
	port := fs.Int("port", 0, "CDP debugging port")
	targetURL := fs.String("url", "", "initial navigation target")
	headed := fs.Bool("headed", false, "show the browser window")
	profilePath := fs.String("profile", "", "storage-state file to pre-load")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *port == 0 || *targetURL == "" {
		return fmt.Errorf("__launch requires --port and --url")
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	log, _ := logging.NewLogger("launcher")
	defer log.Close()
	log.Infof("launching browser on port %d for %s", *port, *targetURL)

	err = browser.RunDetached(browser.DetachedOptions{
		Port:           *port,
		URL:            *targetURL,
		Headed:         *headed,
		ProfilePath:    *profilePath,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		UserAgent:      cfg.UserAgent,
	})
	if err != nil {
		log.Errorf("launcher exited with error: %v", err)
	}
	return err
}
