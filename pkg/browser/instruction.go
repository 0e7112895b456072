package browser

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// InstructionKind discriminates the closed instruction vocabulary the
// `exec` command accepts. Free-form code is deliberately limited to a
// JavaScript expression evaluated inside the page: the instruction set
// exposes page handles only, never ambient process access.
type InstructionKind int

const (
	// InstructionEvaluate evaluates a JavaScript expression in the page
	InstructionEvaluate InstructionKind = iota

	// InstructionClick clicks the element matching Selector
	InstructionClick

	// InstructionFill fills the element matching Selector with Value
	InstructionFill

	// InstructionGoto navigates the page to Value
	InstructionGoto

	// InstructionWait waits for the element matching Selector to appear
	InstructionWait
)

// Instruction is one parsed exec instruction.
type Instruction struct {
	Kind     InstructionKind
	Selector string
	Value    string

	// Source is the raw JavaScript for InstructionEvaluate
	Source string
}

// ParseInstruction recognizes `click <selector>`, `fill <selector>
// <value...>`, `goto <url>`, and `wait <selector>`. Anything else is
// treated as a JavaScript expression.
func ParseInstruction(raw string) (Instruction, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Instruction{}, fmt.Errorf("empty instruction")
	}

	switch strings.ToLower(fields[0]) {
	case "click":
		if len(fields) != 2 {
			return Instruction{}, fmt.Errorf("usage: click <selector>")
		}
		return Instruction{Kind: InstructionClick, Selector: fields[1]}, nil
	case "fill":
		if len(fields) < 3 {
			return Instruction{}, fmt.Errorf("usage: fill <selector> <value>")
		}
		return Instruction{
			Kind:     InstructionFill,
			Selector: fields[1],
			Value:    strings.Join(fields[2:], " "),
		}, nil
	case "goto":
		if len(fields) != 2 {
			return Instruction{}, fmt.Errorf("usage: goto <url>")
		}
		return Instruction{Kind: InstructionGoto, Value: fields[1]}, nil
	case "wait":
		if len(fields) != 2 {
			return Instruction{}, fmt.Errorf("usage: wait <selector>")
		}
		return Instruction{Kind: InstructionWait, Selector: fields[1]}, nil
	default:
		return Instruction{Kind: InstructionEvaluate, Source: raw}, nil
	}
}

// Apply executes the instruction against the active page. The result is
// non-nil only for evaluated expressions.
func (in Instruction) Apply(page playwright.Page) (interface{}, error) {
	switch in.Kind {
	case InstructionClick:
		if err := page.Click(in.Selector); err != nil {
			return nil, fmt.Errorf("click failed: %w", err)
		}
		return nil, nil
	case InstructionFill:
		if err := page.Fill(in.Selector, in.Value); err != nil {
			return nil, fmt.Errorf("fill failed: %w", err)
		}
		return nil, nil
	case InstructionGoto:
		if _, err := page.Goto(in.Value); err != nil {
			return nil, fmt.Errorf("navigation failed: %w", err)
		}
		return nil, nil
	case InstructionWait:
		if _, err := page.WaitForSelector(in.Selector); err != nil {
			return nil, fmt.Errorf("wait failed: %w", err)
		}
		return nil, nil
	default:
		result, err := page.Evaluate(in.Source)
		if err != nil {
			return nil, fmt.Errorf("JavaScript execution failed: %w", err)
		}
		return result, nil
	}
}
