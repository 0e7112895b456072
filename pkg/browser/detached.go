package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// DetachedOptions configures the browser the hidden __launch child runs.
type DetachedOptions struct {
	// Port is the CDP debugging port the browser must bind
	Port int

	// URL is the initial navigation target
	URL string

	// Headed shows the browser window instead of running headless
	Headed bool

	// ProfilePath, when set, is a saved storage-state file to pre-load
	ProfilePath string

	// Viewport and user agent are fixed per launch
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
}

// RunDetached is the body of the hidden __launch subcommand. It launches the
// browser with CDP debugging enabled, navigates, and then blocks until the
// page's close event fires, at which point the browser is shut down and the
// process exits. Closing the page is therefore equivalent to shutting the
// session down; the parent CLI process never owns this lifetime.
func RunDetached(opts DetachedOptions) error {
	pw, err := runPlaywright(true)
	if err != nil {
		return err
	}
	defer pw.Stop()

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(!opts.Headed),
		Args:     []string{fmt.Sprintf("--remote-debugging-port=%d", opts.Port)},
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer b.Close()

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		UserAgent: playwright.String(opts.UserAgent),
	}
	if opts.ProfilePath != "" {
		contextOpts.StorageStatePath = playwright.String(opts.ProfilePath)
	}

	context, err := b.NewContext(contextOpts)
	if err != nil {
		return fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	closed := make(chan struct{})
	page.OnClose(func(playwright.Page) {
		close(closed)
	})

	if _, err := page.Goto(opts.URL); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", opts.URL, err)
	}

	<-closed
	return nil
}
