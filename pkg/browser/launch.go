package browser

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/entrhq/surf/pkg/session"
)

const (
	// CDP readiness polling interval and total wall-clock budget. The
	// budget is a deadline, not an attempt count, so slow failed requests
	// cannot stretch the wait.
	pollInterval  = 500 * time.Millisecond
	cdpWaitBudget = 15 * time.Second

	// launchSettleDelay lets the initial page load get past its earliest
	// paint before control returns to the caller
	launchSettleDelay = time.Second
)

// Launch makes `open` idempotent: a live session with this name is reused
// and simply redirected to url; otherwise a new detached browser is spawned
// on a freshly allocated port, pre-loaded with the domain's saved profile
// when one exists.
func (m *Manager) Launch(targetURL string, headed bool, name string) error {
	// Liveness is verified by a real attach, not record presence. A failed
	// probe evicts the stale record as a side effect, clearing the way for
	// the fresh launch below.
	if handle, err := m.Connect(name, reuseProbeTimeout); err == nil {
		defer handle.Close()
		if _, err := handle.Page.Goto(targetURL); err != nil {
			return fmt.Errorf("failed to navigate existing session: %w", err)
		}
		m.log.Infof("reused session %q for %s", name, targetURL)
		return nil
	}

	port, err := session.FreePort()
	if err != nil {
		return err
	}

	profilePath, hasProfile := m.profiles.Lookup(targetURL)
	if hasProfile {
		m.log.Infof("launching session %q with saved profile %s", name, profilePath)
	}

	if err := spawnDetached(port, targetURL, headed, profilePath); err != nil {
		return err
	}

	if err := waitForCDP(port); err != nil {
		// No record is written, leaving the system in its prior state.
		return err
	}

	rec := &session.Record{
		Session:   name,
		Port:      port,
		StartedAt: time.Now().UTC(),
	}
	if err := m.store.Write(rec); err != nil {
		return err
	}

	m.log.Infof("session %q ready on port %d", name, port)
	time.Sleep(launchSettleDelay)
	return nil
}

// Register records an operator-launched browser as an external session,
// verified by an actual attach rather than trusting the URL.
func (m *Manager) Register(name, cdpURL string) error {
	parsed, err := url.Parse(cdpURL)
	if err != nil || parsed.Scheme != "http" || parsed.Port() == "" {
		return fmt.Errorf("invalid CDP URL %q: expected http://host:port", cdpURL)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		return fmt.Errorf("invalid CDP URL %q: expected http://host:port", cdpURL)
	}

	pw, err := runPlaywright(false)
	if err != nil {
		return err
	}
	defer pw.Stop()

	b, err := attach(pw, cdpURL, ConnectTimeout)
	if err != nil {
		return fmt.Errorf("cannot attach to %s: %w", cdpURL, err)
	}
	// Probe only; the operator's browser keeps running.
	_ = b.Close()

	rec := &session.Record{
		Session:   name,
		Port:      port,
		StartedAt: time.Now().UTC(),
		External:  true,
	}
	if err := m.store.Write(rec); err != nil {
		return err
	}
	m.log.Infof("registered external session %q on port %d", name, port)
	return nil
}

// Shutdown terminates or disconnects the named session and clears its
// record. For sessions this tool launched, closing every page triggers the
// detached launcher, which is awaiting page close and shuts the browser
// down itself. External sessions are only disconnected.
func (m *Manager) Shutdown(name string) error {
	rec, ok := m.store.Read(name)
	if !ok {
		return fmt.Errorf("no session named %q to close", name)
	}

	handle, err := m.Connect(name, ConnectTimeout)
	if err != nil {
		// Connect already evicted the record; the browser is gone.
		m.log.Infof("session %q was already dead", name)
		return nil
	}
	defer handle.Close()

	if !rec.External {
		for _, context := range handle.Browser.Contexts() {
			for _, page := range context.Pages() {
				if err := page.Close(); err != nil {
					m.log.Warnf("failed to close page %s: %v", page.URL(), err)
				}
			}
		}
	}

	return m.store.Clear(name)
}

// spawnDetached re-invokes this executable with the hidden __launch
// subcommand in a new session group. The child owns the browser lifetime
// from here: it exits on its own when its page closes, long after this CLI
// invocation has finished.
func spawnDetached(port int, targetURL string, headed bool, profilePath string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	args := []string{"__launch", "--port", strconv.Itoa(port), "--url", targetURL}
	if headed {
		args = append(args, "--headed")
	}
	if profilePath != "" {
		args = append(args, "--profile", profilePath)
	}

	cmd := exec.Command(exe, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn browser launcher: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release launcher process: %w", err)
	}
	return nil
}

// waitForCDP polls the CDP version endpoint until the spawned browser
// answers or the wall-clock budget runs out.
func waitForCDP(port int) error {
	return waitForCDPWithin(port, cdpWaitBudget)
}

func waitForCDPWithin(port int, budget time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	endpoint := fmt.Sprintf("http://127.0.0.1:%d/json/version", port)

	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		resp, err := client.Get(endpoint)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(pollInterval)
	}

	return fmt.Errorf("browser did not expose CDP on port %d within %s", port, budget)
}
