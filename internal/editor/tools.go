package editor

import (
	"fmt"
	"strings"
)

// Tool is the active pointer mode.
type Tool int

const (
	ToolSelect Tool = iota
	ToolPan
	ToolRectangle
	ToolCircle
	ToolLine
	ToolPolygon
	ToolText
	ToolFill
)

var toolNames = []string{"select", "pan", "rectangle", "circle", "line", "polygon", "text", "fill"}

func (t Tool) String() string {
	if int(t) < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// Tools lists every tool in toolbar order.
func Tools() []Tool {
	out := make([]Tool, len(toolNames))
	for i := range out {
		out[i] = Tool(i)
	}
	return out
}

// ParseTool maps a tool name (case-insensitive, "rect" accepted) to a Tool.
func ParseTool(name string) (Tool, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "rect" {
		n = "rectangle"
	}
	for i, s := range toolNames {
		if s == n {
			return Tool(i), nil
		}
	}
	return ToolSelect, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// shortcut runes used by HandleKey when no text edit is active.
var toolShortcuts = map[rune]Tool{
	'v': ToolSelect,
	'h': ToolPan,
	'r': ToolRectangle,
	'c': ToolCircle,
	'l': ToolLine,
	'p': ToolPolygon,
	't': ToolText,
	'f': ToolFill,
}
