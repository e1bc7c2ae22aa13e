package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"uigen/internal/diff"
	"uigen/internal/project"
	"uigen/internal/tools"
	"uigen/internal/vfs"
	"uigen/internal/watch"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	blue   = color.New(color.FgBlue).SprintFunc()
)

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// printTree prints serialized nodes as an indented tree, directories first.
func printTree(nodes map[string]vfs.SerializedNode) {
	children := make(map[string][]vfs.SerializedNode)
	for p, n := range nodes {
		if p == "/" {
			continue
		}
		parent := vfs.Parent(p)
		children[parent] = append(children[parent], n)
	}
	if len(children) == 0 {
		fmt.Println(vfs.EmptyDirectoryListing)
		return
	}

	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		list := children[dir]
		sort.Slice(list, func(i, j int) bool {
			if (list[i].Type == vfs.DirectoryType) != (list[j].Type == vfs.DirectoryType) {
				return list[i].Type == vfs.DirectoryType
			}
			return list[i].Name < list[j].Name
		})
		for _, n := range list {
			indent := strings.Repeat("  ", depth)
			if n.Type == vfs.DirectoryType {
				fmt.Printf("%s%s/\n", indent, blue(n.Name))
				walk(n.Path, depth+1)
				continue
			}
			size := 0
			if n.Content != nil {
				size = len(*n.Content)
			}
			fmt.Printf("%s%s  (%d bytes)\n", indent, n.Name, size)
		}
	}
	walk("/", 0)
}

func printSkipped(report watch.Report) {
	if len(report.Skipped) == 0 {
		return
	}
	paths := make([]string, 0, len(report.Skipped))
	for p := range report.Skipped {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	fmt.Println("Skipped files:")
	for _, p := range paths {
		fmt.Printf("\t%s %s: %s\n", yellow("!"), p, report.Skipped[p])
	}
}

func printToolResult(res *tools.Result) {
	if res.IsError {
		fmt.Println(red(res.Output))
		return
	}
	fmt.Println(res.Output)
}

// printHistory lists revisions newest first and marks the current one.
func printHistory(p *project.Project) {
	fmt.Printf("\nHistory of %s:\n", p.Name)
	for i := len(p.History) - 1; i >= 0; i-- {
		rev := p.History[i]
		marker := " "
		if rev.Hash == p.Revision {
			marker = green("*")
		}
		fmt.Printf("%s %s  %s  %3d files  %s\n",
			marker,
			yellow(shortHash(rev.Hash)),
			rev.CreatedAt.Format(time.RFC3339),
			rev.Files,
			rev.Note,
		)
	}
}

func printFileDiff(d diff.FileDiff) {
	var status string
	switch d.Status {
	case diff.Added:
		status = green("A")
	case diff.Removed:
		status = red("D")
	default:
		status = yellow("M")
	}
	fmt.Printf("\n%s diff --uigen a%s b%s\n", status, d.Path, d.Path)
	if d.Result != nil {
		fmt.Printf("%s, %s\n",
			green(fmt.Sprintf("+%d", d.Result.Stats.Additions)),
			red(fmt.Sprintf("-%d", d.Result.Stats.Deletions)),
		)
		printColoredDiff(d.Result.Format())
	}
}

func printColoredDiff(text string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}

		switch {
		case strings.HasPrefix(line, "@@"):
			header.Println(line)
		case strings.HasPrefix(line, "+"):
			added.Println(line)
		case strings.HasPrefix(line, "-"):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
}
