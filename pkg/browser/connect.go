// Package browser manages the lifecycle of CDP-attached browser sessions:
// launching detached browser processes, reattaching to them by recorded
// port, and tearing them down. The CLI process never owns a browser's
// lifetime; it only holds short-lived CDP attachments.
package browser

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/surf/pkg/config"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/profile"
	"github.com/entrhq/surf/pkg/session"
)

const (
	// ConnectTimeout bounds a normal attach attempt
	ConnectTimeout = 5 * time.Second

	// reuseProbeTimeout bounds the liveness probe on the open-reuse path
	reuseProbeTimeout = 2 * time.Second
)

// Manager coordinates the session store, profile store, and the automation
// library for all lifecycle commands.
type Manager struct {
	cfg      *config.Config
	store    *session.Store
	profiles *profile.Manager
	log      *logging.Logger
}

// NewManager creates a lifecycle manager.
func NewManager(cfg *config.Config, store *session.Store, profiles *profile.Manager, log *logging.Logger) *Manager {
	return &Manager{cfg: cfg, store: store, profiles: profiles, log: log}
}

// Handle is a live CDP attachment to a session's browser, resolved to the
// active context and page.
type Handle struct {
	Browser playwright.Browser
	Context playwright.BrowserContext
	Page    playwright.Page

	pw        *playwright.Playwright
	closeOnce sync.Once
}

// Close releases the CDP attachment. It never terminates the underlying
// browser process: the attachment is a connection, not ownership. Safe to
// call multiple times; every attaching command must defer it.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		// Disconnect failures are not actionable for the caller.
		if h.Browser != nil {
			_ = h.Browser.Close()
		}
		if h.pw != nil {
			_ = h.pw.Stop()
		}
	})
}

// Connect attaches to the named session's recorded port. A failed or timed
// out attach evicts the stale session record so the next `open` starts a
// fresh browser instead of retrying a dead port forever.
func (m *Manager) Connect(name string, timeout time.Duration) (*Handle, error) {
	rec, ok := m.store.Read(name)
	if !ok {
		return nil, fmt.Errorf("no session named %q: start one with `surf open <url> --session %s` or `surf connect <cdp-url> --session %s`", name, name, name)
	}

	pw, err := runPlaywright(false)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("http://127.0.0.1:%d", rec.Port)
	b, err := attach(pw, endpoint, timeout)
	if err != nil {
		_ = pw.Stop()
		if clearErr := m.store.Clear(name); clearErr != nil {
			m.log.Warnf("failed to evict stale record for session %q: %v", name, clearErr)
		} else {
			m.log.Infof("evicted stale record for session %q (port %d)", name, rec.Port)
		}
		return nil, fmt.Errorf("session %q is not reachable on port %d (%v): run `surf open <url> --session %s` to start a new one", name, rec.Port, err, name)
	}

	handle, err := newHandle(pw, b)
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, err
	}
	return handle, nil
}

// newHandle resolves the browser's active context and page: the last
// context, and within it the most-recently-created page that is not a
// devtools-internal page.
func newHandle(pw *playwright.Playwright, b playwright.Browser) (*Handle, error) {
	contexts := b.Contexts()
	if len(contexts) == 0 {
		return nil, fmt.Errorf("browser has no context to act on")
	}
	context := contexts[len(contexts)-1]

	page := activePage(context)
	if page == nil {
		return nil, fmt.Errorf("browser context has no pages to act on")
	}

	return &Handle{Browser: b, Context: context, Page: page, pw: pw}, nil
}

func activePage(context playwright.BrowserContext) playwright.Page {
	pages := context.Pages()
	for i := len(pages) - 1; i >= 0; i-- {
		if !strings.HasPrefix(pages[i].URL(), "devtools://") {
			return pages[i]
		}
	}
	return nil
}

type attachResult struct {
	browser playwright.Browser
	err     error
}

// attach races a CDP connect against a timeout. The timeout resolves to an
// error rather than panicking, and is treated identically to a failed
// attach. The losing in-flight attempt is abandoned; if it completes later
// its connection is dropped so nothing leaks.
func attach(pw *playwright.Playwright, endpoint string, timeout time.Duration) (playwright.Browser, error) {
	results := make(chan attachResult, 1)
	go func() {
		b, err := pw.Chromium.ConnectOverCDP(endpoint)
		results <- attachResult{browser: b, err: err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			return nil, fmt.Errorf("CDP attach failed: %w", res.err)
		}
		return res.browser, nil
	case <-time.After(timeout):
		go func() {
			if res := <-results; res.err == nil {
				_ = res.browser.Close()
			}
		}()
		return nil, fmt.Errorf("CDP attach timed out after %s", timeout)
	}
}

// runPlaywright installs and starts the automation driver, discarding its
// output so it cannot interfere with the report on stdout. Browser binaries
// are only installed on the launch path; attach-only commands skip them.
func runPlaywright(installBrowsers bool) (*playwright.Playwright, error) {
	opts := &playwright.RunOptions{
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
		SkipInstallBrowsers: !installBrowsers,
	}
	if installBrowsers {
		opts.Browsers = []string{"chromium"}
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return pw, nil
}
