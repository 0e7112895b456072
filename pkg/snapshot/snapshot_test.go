package snapshot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPatterns = []string{
	"*submit*", "*continue*", "*next*", "*save*", "*apply*", "*create*", "*sign*",
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(testPatterns)
	require.NoError(t, err)
	return b
}

func TestNewBuilder_InvalidPattern(t *testing.T) {
	_, err := NewBuilder([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestParseTreeLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		ok        bool
		wantDepth int
		wantRole  string
		wantName  string
	}{
		{"landmark", "- navigation:", true, 0, "navigation", ""},
		{"nested heading", `  - heading "Welcome" [level=1]`, true, 1, "heading", "Welcome"},
		{"deeply nested", `    - link "Docs"`, true, 2, "link", "Docs"},
		{"named landmark", `- region "Sidebar":`, true, 0, "region", "Sidebar"},
		{"blank", "", false, 0, "", ""},
		{"spaces only", "    ", false, 0, "", ""},
		{"bare dash", "- ", false, 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, ok := parseTreeLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.wantDepth, tl.depth)
				assert.Equal(t, tt.wantRole, tl.role)
				assert.Equal(t, tt.wantName, tl.name)
			}
		})
	}
}

func TestRegionMap_NavigationWithTwoHeadings(t *testing.T) {
	raw := "- navigation:\n" +
		`  - heading "Products"` + "\n" +
		`  - heading "Pricing"` + "\n"
	headings := []heading{
		{Text: "Products", InView: true},
		{Text: "Pricing", InView: false},
	}

	region := regionMap(raw, headings, nil)
	lines := strings.Split(region, "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "[navigation]", lines[0])
	assert.Equal(t, `h "Products" ← in view`, lines[1])
	assert.Equal(t, `h "Pricing" (below)`, lines[2])
}

func TestRegionMap_UnmatchedHeadingGetsNoAnnotation(t *testing.T) {
	raw := "- main:\n" + `  - heading "Mystery"` + "\n"

	region := regionMap(raw, nil, nil)
	assert.Contains(t, region, `h "Mystery"`)
	assert.NotContains(t, region, "in view")
	assert.NotContains(t, region, "(below)")
}

func TestRegionMap_LandmarkAloneEmitsLabelOnly(t *testing.T) {
	region := regionMap("- contentinfo:\n", nil, nil)
	assert.Equal(t, "[contentinfo]", region)
}

func TestRegionMap_NamedLandmark(t *testing.T) {
	region := regionMap(`- region "Sidebar":`+"\n", nil, nil)
	assert.Equal(t, `[region "Sidebar"]`, region)
}

func TestRegionMap_NewLandmarkClosesPrevious(t *testing.T) {
	raw := "- banner:\n" +
		`  - heading "Logo"` + "\n" +
		"- main:\n" +
		`  - heading "Body"` + "\n"

	region := regionMap(raw, nil, nil)
	lines := strings.Split(region, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[banner]", lines[0])
	assert.Equal(t, `h "Logo"`, lines[1])
	assert.Equal(t, "[main]", lines[2])
	assert.Equal(t, `h "Body"`, lines[3])
}

func TestRegionMap_CollapsedEntriesCappedAtFive(t *testing.T) {
	var collapsed []collapsedElement
	for i := 0; i < 8; i++ {
		collapsed = append(collapsed, collapsedElement{Role: "button", Label: fmt.Sprintf("menu %d", i)})
	}

	region := regionMap("", nil, collapsed)
	lines := strings.Split(region, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, `button "menu 0" (collapsed)`, lines[0])
	assert.Equal(t, `button "menu 4" (collapsed)`, lines[4])
}

func TestRegionMap_EmptyTree(t *testing.T) {
	assert.Empty(t, regionMap("", nil, nil))
}

func TestActionDeck_ScoringOrder(t *testing.T) {
	b := newTestBuilder(t)
	raw := `- link "About"` + "\n" +
		`- button "Submit"` + "\n" +
		`- link "Try the demo"` + "\n"

	deck := b.actionDeck(raw)
	lines := strings.Split(deck, "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, "actions:", lines[0])
	// button role bonus + intent keyword beats demo beats plain link.
	assert.Equal(t, `button "Submit"`, lines[1])
	assert.Equal(t, `link "Try the demo"`, lines[2])
	assert.Equal(t, `link "About"`, lines[3])
}

func TestActionDeck_DuplicatesIndexedAndCapped(t *testing.T) {
	b := newTestBuilder(t)

	var sb strings.Builder
	for i := 0; i < 9; i++ {
		sb.WriteString(`- button "Add to cart"` + "\n")
	}
	sb.WriteString(`- link "Terms"` + "\n")

	deck := b.actionDeck(sb.String())
	lines := strings.Split(deck, "\n")

	// Header plus at most 8 entries.
	require.Len(t, lines, 9)
	assert.Equal(t, "actions:", lines[0])

	// Every kept occurrence of the duplicated pair is indexed from 0.
	for i := 1; i <= 8; i++ {
		assert.Equal(t, fmt.Sprintf(`[%d] button "Add to cart"`, i-1), lines[i])
	}
	assert.NotContains(t, deck, `link "Terms"`)
}

func TestActionDeck_UniqueEntriesNotIndexed(t *testing.T) {
	b := newTestBuilder(t)
	deck := b.actionDeck(`- button "Submit"` + "\n" + `- link "Docs"` + "\n")

	assert.Contains(t, deck, `button "Submit"`)
	assert.Contains(t, deck, `link "Docs"`)
	assert.NotContains(t, deck, "[0]")
}

func TestActionDeck_EmptyTree(t *testing.T) {
	b := newTestBuilder(t)
	assert.Empty(t, b.actionDeck(""))
	assert.Empty(t, b.actionDeck("- navigation:\n  - heading \"No actions here\"\n"))
}

func TestRender_SpecExample(t *testing.T) {
	b := newTestBuilder(t)
	raw := "- navigation:\n" +
		`  - heading "Welcome"` + "\n" +
		`- button "Submit"`
	state := pageState{
		ScrollY:   0,
		DocHeight: 600,
		Viewport:  720,
		Headings:  []heading{{Text: "Welcome", InView: true}},
	}

	report := b.render("https://example.com", "Example", raw, state)

	assert.Contains(t, report, "https://example.com\nExample\n")
	assert.Contains(t, report, "[navigation]")
	assert.Contains(t, report, `h "Welcome" ← in view`)
	assert.Contains(t, report, "actions:\n"+`button "Submit"`)
	// Document fits the viewport, so no scroll line.
	assert.NotContains(t, report, "scroll:")
	// The raw tree is appended verbatim.
	assert.True(t, strings.HasSuffix(report, raw))
}

func TestRender_ScrollLine(t *testing.T) {
	b := newTestBuilder(t)

	state := pageState{ScrollY: 120, DocHeight: 2000, Viewport: 720}
	report := b.render("https://example.com", "t", "", state)
	assert.Contains(t, report, "scroll: 120/1280px (more below)")

	// Remaining distance under the threshold drops the marker.
	state = pageState{ScrollY: 1200, DocHeight: 2000, Viewport: 720}
	report = b.render("https://example.com", "t", "", state)
	assert.Contains(t, report, "scroll: 1200/1280px")
	assert.NotContains(t, report, "(more below)")
}

func TestRender_EmptyTreeOmitsActionsHeader(t *testing.T) {
	b := newTestBuilder(t)
	report := b.render("https://example.com", "blank", "", pageState{})

	assert.NotContains(t, report, "actions:")
	assert.NotContains(t, report, "[")
}
