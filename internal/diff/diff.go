// internal/diff/diff.go
package diff

import (
	"bytes"
	"fmt"
	"strings"
)

// Line represents a single line in a diff with its type and content.
// OldNum and NewNum are 1-based; zero means the line has no counterpart on
// that side.
type Line struct {
	Type    LineType `json:"type"`
	Content string   `json:"content"`
	OldNum  int      `json:"old_num,omitempty"`
	NewNum  int      `json:"new_num,omitempty"`
}

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

func (t LineType) String() string {
	switch t {
	case Addition:
		return "addition"
	case Deletion:
		return "deletion"
	default:
		return "context"
	}
}

func (t LineType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *LineType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "addition":
		*t = Addition
	case "deletion":
		*t = Deletion
	case "context":
		*t = Context
	default:
		return fmt.Errorf("unknown line type %q", text)
	}
	return nil
}

type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Changes   int `json:"changes"`
}

// Result contains the complete diff information
type Result struct {
	Hunks []Hunk `json:"hunks"`
	Stats Stats  `json:"stats"`
}

// Hunk represents a continuous section of changes with its context
type Hunk struct {
	OldStart int    `json:"old_start"`
	OldLines int    `json:"old_lines"`
	NewStart int    `json:"new_start"`
	NewLines int    `json:"new_lines"`
	Lines    []Line `json:"lines"`
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	return &Engine{
		contextLines: max(0, contextLines),
	}
}

// Diff generates a line-by-line diff between two contents. Identical
// contents produce no hunks.
func (e *Engine) Diff(oldContent, newContent string) *Result {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	ops := e.script(oldLines, newLines)
	result := &Result{Hunks: e.group(ops)}

	for _, op := range ops {
		switch op.Type {
		case Addition:
			result.Stats.Additions++
		case Deletion:
			result.Stats.Deletions++
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions
	return result
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// script walks the longest common subsequence of the two sides and returns
// every line in order: shared lines as context, the rest as deletions
// (before) and additions (after).
func (e *Engine) script(oldLines, newLines []string) []Line {
	// lcs[i][j] is the LCS length of oldLines[i:] and newLines[j:].
	lcs := make([][]int, len(oldLines)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(newLines)+1)
	}
	for i := len(oldLines) - 1; i >= 0; i-- {
		for j := len(newLines) - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	ops := make([]Line, 0, len(oldLines)+len(newLines))
	i, j := 0, 0
	for i < len(oldLines) || j < len(newLines) {
		switch {
		case i < len(oldLines) && j < len(newLines) && oldLines[i] == newLines[j]:
			ops = append(ops, Line{Type: Context, Content: oldLines[i], OldNum: i + 1, NewNum: j + 1})
			i++
			j++
		case j == len(newLines) || (i < len(oldLines) && lcs[i+1][j] >= lcs[i][j+1]):
			ops = append(ops, Line{Type: Deletion, Content: oldLines[i], OldNum: i + 1})
			i++
		default:
			ops = append(ops, Line{Type: Addition, Content: newLines[j], NewNum: j + 1})
			j++
		}
	}
	return ops
}

// group cuts the edit script into hunks, keeping contextLines of unchanged
// lines around each change and merging hunks whose context overlaps.
func (e *Engine) group(ops []Line) []Hunk {
	var hunks []Hunk
	for start := 0; start < len(ops); {
		if ops[start].Type == Context {
			start++
			continue
		}

		from := max(0, start-e.contextLines)
		end := start
		for end < len(ops) {
			if ops[end].Type != Context {
				end++
				continue
			}
			// Run of context: stop if it is long enough to separate hunks.
			run := end
			for run < len(ops) && ops[run].Type == Context {
				run++
			}
			if run == len(ops) || run-end > 2*e.contextLines {
				break
			}
			end = run
		}
		to := min(len(ops), end+e.contextLines)

		hunks = append(hunks, newHunk(ops, from, to))
		start = to
	}
	return hunks
}

func newHunk(ops []Line, from, to int) Hunk {
	h := Hunk{Lines: append([]Line(nil), ops[from:to]...)}

	// Start positions come from the first line that has one on each side,
	// or from the preceding line when the hunk has none.
	oldPos, newPos := 0, 0
	for k := from - 1; k >= 0 && (oldPos == 0 || newPos == 0); k-- {
		if oldPos == 0 && ops[k].OldNum != 0 {
			oldPos = ops[k].OldNum
		}
		if newPos == 0 && ops[k].NewNum != 0 {
			newPos = ops[k].NewNum
		}
	}

	for _, l := range h.Lines {
		if l.OldNum != 0 {
			if h.OldLines == 0 {
				h.OldStart = l.OldNum
			}
			h.OldLines++
		}
		if l.NewNum != 0 {
			if h.NewLines == 0 {
				h.NewStart = l.NewNum
			}
			h.NewLines++
		}
	}
	if h.OldLines == 0 {
		h.OldStart = oldPos
	}
	if h.NewLines == 0 {
		h.NewStart = newPos
	}
	return h
}

// Format returns a unified-style rendering of the diff
func (r *Result) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			buf.WriteString(line.Prefix())
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// Prefix is the marker a line is printed with.
func (l Line) Prefix() string {
	switch l.Type {
	case Addition:
		return "+ "
	case Deletion:
		return "- "
	default:
		return "  "
	}
}
