// Package snapshot converts the automation library's raw indented
// accessibility-tree text into an enriched, prioritized report: page
// identity, scroll position, a landmark region map, and a ranked shortlist
// of interactive elements. The raw tree is always appended verbatim; the
// enrichment is additive, never a replacement, because the raw tree remains
// the ground truth for element targeting.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/playwright-community/playwright-go"
)

const (
	// indentUnit is the number of spaces per nesting level in the raw tree
	indentUnit = 2

	// scrollRemainderThreshold marks how much unscrolled content warrants
	// a "(more below)" hint
	scrollRemainderThreshold = 100

	// maxActions caps the action deck
	maxActions = 8

	// maxCollapsedEntries caps collapsed-element entries in the region map
	maxCollapsedEntries = 5

	buttonRoleBonus = 3
	intentBonus     = 5
	demoBonus       = 2
)

// landmarkRoles are the structural region roles that open a region-map section.
var landmarkRoles = map[string]bool{
	"banner":        true,
	"navigation":    true,
	"main":          true,
	"contentinfo":   true,
	"complementary": true,
	"region":        true,
}

// actionRoles are the primary interactive roles considered for the action deck.
var actionRoles = map[string]bool{
	"button":    true,
	"link":      true,
	"textbox":   true,
	"searchbox": true,
	"combobox":  true,
}

// Builder assembles snapshot reports. Action-intent patterns are compiled
// once per invocation.
type Builder struct {
	intentPatterns []glob.Glob
}

// NewBuilder compiles the action-intent glob patterns (matched against
// lowercased element names) and returns a builder.
func NewBuilder(patterns []string) (*Builder, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid action pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}
	return &Builder{intentPatterns: compiled}, nil
}

// heading is a document heading with its viewport visibility.
type heading struct {
	Text   string `json:"text"`
	InView bool   `json:"inView"`
}

// collapsedElement is an element flagged aria-expanded=false.
type collapsedElement struct {
	Role  string `json:"role"`
	Label string `json:"label"`
}

// pageState is everything Build collects from the live page besides the tree.
type pageState struct {
	ScrollY   float64            `json:"scrollY"`
	DocHeight float64            `json:"docHeight"`
	Viewport  float64            `json:"viewport"`
	Headings  []heading          `json:"headings"`
	Collapsed []collapsedElement `json:"collapsed"`
}

const stateScript = `() => {
	const headings = [];
	for (const el of document.querySelectorAll('h1, h2, h3, h4, h5, h6')) {
		const rect = el.getBoundingClientRect();
		headings.push({
			text: (el.textContent || '').trim(),
			inView: rect.top < window.innerHeight && rect.bottom > 0,
		});
	}
	const collapsed = [];
	for (const el of document.querySelectorAll('[aria-expanded="false"]')) {
		collapsed.push({
			role: el.getAttribute('role') || el.tagName.toLowerCase(),
			label: (el.getAttribute('aria-label') || el.textContent || '').trim(),
		});
	}
	return {
		scrollY: window.scrollY,
		docHeight: document.documentElement.scrollHeight,
		viewport: window.innerHeight,
		headings,
		collapsed,
	};
}`

// Build captures the page's accessibility tree and produces the full report.
func (b *Builder) Build(page playwright.Page) (string, error) {
	pageURL := page.URL()

	title, err := page.Title()
	if err != nil {
		title = ""
	}

	raw, err := page.Locator("body").AriaSnapshot()
	if err != nil {
		return "", fmt.Errorf("failed to capture accessibility tree: %w", err)
	}

	state, err := collectState(page)
	if err != nil {
		return "", fmt.Errorf("failed to collect page state: %w", err)
	}

	return b.render(pageURL, title, raw, state), nil
}

func collectState(page playwright.Page) (pageState, error) {
	result, err := page.Evaluate(stateScript)
	if err != nil {
		return pageState{}, err
	}

	// Round-trip through JSON to convert the loosely typed evaluate result.
	data, err := json.Marshal(result)
	if err != nil {
		return pageState{}, err
	}
	var state pageState
	if err := json.Unmarshal(data, &state); err != nil {
		return pageState{}, err
	}
	return state, nil
}

// render assembles the final report: url, title, optional scroll line,
// blank line, region map, optional blank-line-prefixed action deck, blank
// line, then the raw tree verbatim.
func (b *Builder) render(pageURL, title, raw string, state pageState) string {
	var sb strings.Builder
	sb.WriteString(pageURL)
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")

	if state.DocHeight > state.Viewport {
		maxScroll := state.DocHeight - state.Viewport
		sb.WriteString(fmt.Sprintf("scroll: %d/%dpx", int(state.ScrollY), int(maxScroll)))
		if maxScroll-state.ScrollY > scrollRemainderThreshold {
			sb.WriteString(" (more below)")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")

	if region := regionMap(raw, state.Headings, state.Collapsed); region != "" {
		sb.WriteString(region)
		sb.WriteString("\n")
	}

	if deck := b.actionDeck(raw); deck != "" {
		sb.WriteString("\n")
		sb.WriteString(deck)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(raw)
	return sb.String()
}

// treeLine is one parsed line of the raw accessibility tree.
type treeLine struct {
	depth int
	role  string
	name  string
}

// parseTreeLine derives depth from leading spaces (two per level) and splits
// the line into role and quoted name. Lines with no content are discarded.
func parseTreeLine(line string) (treeLine, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if trimmed == "" {
		return treeLine{}, false
	}
	depth := (len(line) - len(trimmed)) / indentUnit

	content := strings.TrimPrefix(trimmed, "- ")
	if content == "" {
		return treeLine{}, false
	}

	return treeLine{
		depth: depth,
		role:  roleOf(content),
		name:  quotedName(content),
	}, true
}

func roleOf(content string) string {
	for i, r := range content {
		if r == ' ' || r == ':' || r == '"' {
			return content[:i]
		}
	}
	return content
}

func quotedName(content string) string {
	start := strings.IndexByte(content, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(content[start+1:], '"')
	if end < 0 {
		return ""
	}
	return content[start+1 : start+1+end]
}

// regionMap scans the raw tree for depth-0 landmarks and the headings under
// them, annotating heading visibility from the collected page state, then
// appends up to maxCollapsedEntries collapsed disclosure widgets.
func regionMap(raw string, headings []heading, collapsed []collapsedElement) string {
	var lines []string
	open := false

	for _, rawLine := range strings.Split(raw, "\n") {
		tl, ok := parseTreeLine(rawLine)
		if !ok {
			continue
		}

		if tl.depth == 0 && landmarkRoles[tl.role] {
			header := "[" + tl.role
			if tl.name != "" {
				header += fmt.Sprintf(" %q", tl.name)
			}
			lines = append(lines, header+"]")
			open = true
			continue
		}

		if open && tl.role == "heading" {
			indent := ""
			if tl.depth > 1 {
				indent = strings.Repeat("  ", tl.depth-1)
			}
			entry := fmt.Sprintf("%sh %q", indent, tl.name)
			if note, found := headingNote(tl.name, headings); found {
				entry += " " + note
			}
			lines = append(lines, entry)
		}
	}

	for i, c := range collapsed {
		if i == maxCollapsedEntries {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %q (collapsed)", c.Role, c.Label))
	}

	return strings.Join(lines, "\n")
}

// headingNote cross-references a tree heading against the headings collected
// from the live page. Headings whose text cannot be matched get no note.
func headingNote(name string, headings []heading) (string, bool) {
	for _, h := range headings {
		if strings.TrimSpace(h.Text) == strings.TrimSpace(name) {
			if h.InView {
				return "← in view", true
			}
			return "(below)", true
		}
	}
	return "", false
}

type action struct {
	role  string
	name  string
	score int
}

// actionDeck ranks the interactive elements in the raw tree and renders the
// top entries. Returns "" when there are no candidates, in which case the
// report omits the section entirely.
func (b *Builder) actionDeck(raw string) string {
	var actions []action
	for _, rawLine := range strings.Split(raw, "\n") {
		tl, ok := parseTreeLine(rawLine)
		if !ok || !actionRoles[tl.role] {
			continue
		}

		score := 0
		if tl.role == "button" {
			score += buttonRoleBonus
		}
		lower := strings.ToLower(tl.name)
		if b.matchesIntent(lower) {
			score += intentBonus
		}
		if strings.Contains(lower, "demo") {
			score += demoBonus
		}
		actions = append(actions, action{role: tl.role, name: tl.name, score: score})
	}

	if len(actions) == 0 {
		return ""
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].score > actions[j].score
	})
	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}

	// Duplicated role+name pairs among the kept entries get a zero-based
	// index prefix so a consumer can target a specific occurrence.
	counts := make(map[string]int)
	for _, a := range actions {
		counts[a.role+"\x00"+a.name]++
	}
	indexes := make(map[string]int)

	lines := []string{"actions:"}
	for _, a := range actions {
		key := a.role + "\x00" + a.name
		entry := fmt.Sprintf("%s %q", a.role, a.name)
		if counts[key] > 1 {
			entry = fmt.Sprintf("[%d] %s", indexes[key], entry)
			indexes[key]++
		}
		lines = append(lines, entry)
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) matchesIntent(lowerName string) bool {
	if lowerName == "" {
		return false
	}
	for _, g := range b.intentPatterns {
		if g.Match(lowerName) {
			return true
		}
	}
	return false
}
