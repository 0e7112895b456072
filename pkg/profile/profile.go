// Package profile persists per-domain authentication state: cookies and
// local storage captured from a live browser session, written in the
// storage-state format the automation library can import directly when the
// next browser for that domain is launched.
package profile

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/surf/pkg/logging"
)

// Profile is the persisted snapshot for one domain. The layout is
// structurally compatible with Playwright's storage-state import format.
type Profile struct {
	Cookies []map[string]interface{} `json:"cookies"`
	Origins []Origin                 `json:"origins"`
}

// Origin holds the local storage captured for one page origin.
type Origin struct {
	Origin       string     `json:"origin"`
	LocalStorage []KeyValue `json:"localStorage"`
}

// KeyValue is a single local storage entry.
type KeyValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Manager reads and writes profiles under a dot-prefixed profile directory,
// one file per normalized domain. Each save fully replaces the prior file;
// profiles are never merged.
type Manager struct {
	dir string
	log *logging.Logger
}

// NewManager returns a manager over dir. The directory is created lazily on
// the first save so that read-only commands never leave one behind.
func NewManager(dir string, log *logging.Logger) *Manager {
	return &Manager{dir: dir, log: log}
}

// NormalizeDomain reduces a URL or bare domain to its profile key:
// scheme stripped, "www." prefix stripped, path and port dropped.
func NormalizeDomain(urlOrDomain string) string {
	s := strings.TrimSpace(urlOrDomain)
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Hostname() != "" {
			s = u.Hostname()
		}
	} else {
		// Bare domain, possibly with a path or port attached.
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
		if i := strings.IndexByte(s, ':'); i >= 0 {
			s = s[:i]
		}
	}
	s = strings.ToLower(s)
	s = strings.TrimPrefix(s, "www.")
	return s
}

// Path returns the profile file path for a URL or domain.
func (m *Manager) Path(urlOrDomain string) string {
	return filepath.Join(m.dir, NormalizeDomain(urlOrDomain)+".json")
}

// Lookup reports whether a saved profile exists for the domain of
// urlOrDomain, returning the file path when it does.
func (m *Manager) Lookup(urlOrDomain string) (string, bool) {
	path := m.Path(urlOrDomain)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// saveSettleDelay lets pending storage writes flush before capture.
const saveSettleDelay = 500 * time.Millisecond

// Save captures cookies and local storage from the attached browser and
// writes them as the profile for urlOrDomain's normalized domain.
//
// Cookies are fetched with a direct CDP Network.getAllCookies call: the
// high-level cookie API does not function over an attached (as opposed to
// launched) browser handle. Pages that throw while being inspected are
// skipped, not fatal.
func (m *Manager) Save(browser playwright.Browser, page playwright.Page, urlOrDomain string) (string, error) {
	time.Sleep(saveSettleDelay)

	cookies, err := allCookies(page)
	if err != nil {
		return "", fmt.Errorf("failed to collect cookies: %w", err)
	}

	var origins []Origin
	seen := make(map[string]bool)
	for _, context := range browser.Contexts() {
		for _, p := range context.Pages() {
			origin, ok := collectLocalStorage(p)
			if !ok {
				m.log.Debugf("skipping page %s during profile save", p.URL())
				continue
			}
			if len(origin.LocalStorage) == 0 || seen[origin.Origin] {
				continue
			}
			seen[origin.Origin] = true
			origins = append(origins, origin)
		}
	}

	prof := Profile{Cookies: cookies, Origins: origins}
	if prof.Origins == nil {
		prof.Origins = []Origin{}
	}

	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}

	if err := os.MkdirAll(m.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create profile directory %s: %w", m.dir, err)
	}

	path := m.Path(urlOrDomain)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write profile: %w", err)
	}

	m.log.Infof("saved profile %s (%d cookies, %d origins)", path, len(cookies), len(origins))
	return path, nil
}

// allCookies issues Network.getAllCookies over a protocol-level session on
// the active page and strips fields that do not serialize into the
// storage-state format.
func allCookies(page playwright.Page) ([]map[string]interface{}, error) {
	cdp, err := page.Context().NewCDPSession(page)
	if err != nil {
		return nil, fmt.Errorf("failed to open CDP session: %w", err)
	}
	defer cdp.Detach()

	result, err := cdp.Send("Network.getAllCookies", nil)
	if err != nil {
		return nil, fmt.Errorf("Network.getAllCookies failed: %w", err)
	}

	wrapper, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected Network.getAllCookies result type %T", result)
	}
	rawList, _ := wrapper["cookies"].([]interface{})

	cookies := make([]map[string]interface{}, 0, len(rawList))
	for _, raw := range rawList {
		cookie, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		cookies = append(cookies, stripPartitionKey(cookie))
	}
	return cookies, nil
}

// stripPartitionKey removes a structured partitionKey field from a cookie.
// The protocol reports it as an object, which the persisted storage-state
// format cannot represent.
func stripPartitionKey(cookie map[string]interface{}) map[string]interface{} {
	if _, isObject := cookie["partitionKey"].(map[string]interface{}); isObject {
		delete(cookie, "partitionKey")
	}
	return cookie
}

// collectLocalStorage evaluates the page's local storage. ok is false when
// the page cannot be inspected (for example cross-origin restrictions).
func collectLocalStorage(page playwright.Page) (Origin, bool) {
	result, err := page.Evaluate(`() => {
		const items = [];
		for (let i = 0; i < localStorage.length; i++) {
			const name = localStorage.key(i);
			items.push({ name, value: localStorage.getItem(name) });
		}
		return { origin: location.origin, localStorage: items };
	}`)
	if err != nil {
		return Origin{}, false
	}

	// Round-trip through JSON to convert the loosely typed evaluate result.
	data, err := json.Marshal(result)
	if err != nil {
		return Origin{}, false
	}
	var origin Origin
	if err := json.Unmarshal(data, &origin); err != nil {
		return Origin{}, false
	}
	return origin, true
}
