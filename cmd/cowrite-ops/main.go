// Command cowrite-ops turns the difference between two text files into
// the operation sequence a client would submit, and prints it alongside
// a unified diff. Useful for inspecting what the engine will see for a
// given edit.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/cowrite/editor"
	"github.com/deepnoodle-ai/cowrite/internal/tablewriter"
	"github.com/deepnoodle-ai/cowrite/ot"
	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	errorStyle   = color.New(color.FgRed)
	successStyle = color.New(color.FgGreen)
	boldStyle    = color.New(color.Bold)
)

func fatal(msg string, args ...interface{}) {
	fmt.Printf(errorStyle.Sprint(msg)+"\n", args...)
	os.Exit(1)
}

func main() {
	var clientID string
	var baseVersion int
	var showDiff bool
	flag.StringVar(&clientID, "client", "cowrite-ops", "Client ID stamped on generated operations")
	flag.IntVar(&baseVersion, "base-version", 0, "Document version the first operation is based on")
	flag.BoolVar(&showDiff, "diff", true, "Print a unified diff before the operation table")
	flag.Parse()

	if flag.NArg() != 2 {
		fatal("Usage: cowrite-ops [flags] <before-file> <after-file>")
	}
	before, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fatal("Error reading %s: %s", flag.Arg(0), err)
	}
	after, err := os.ReadFile(flag.Arg(1))
	if err != nil {
		fatal("Error reading %s: %s", flag.Arg(1), err)
	}

	if showDiff {
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(before)),
			B:        difflib.SplitLines(string(after)),
			FromFile: flag.Arg(0),
			ToFile:   flag.Arg(1),
			Context:  3,
		})
		if err != nil {
			fatal("Error computing diff: %s", err)
		}
		fmt.Println(boldStyle.Sprint("Unified diff:"))
		fmt.Print(text)
		fmt.Println()
	}

	ops := ot.OperationsFromDiff(string(before), string(after), clientID, baseVersion)
	if len(ops) == 0 {
		fmt.Println(successStyle.Sprint("Files are identical; no operations needed."))
		return
	}

	fmt.Println(boldStyle.Sprintf("Operations (%d):", len(ops)))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Version", "Type", "Position", "Length", "Content"})
	for _, op := range ops {
		table.Append([]string{
			fmt.Sprintf("%d", op.Version),
			styleOpType(op.Type),
			fmt.Sprintf("%d", op.Position),
			fmt.Sprintf("%d", opLength(op)),
			truncate(op.Content, 40),
		})
	}
	table.Render()

	// Replay the sequence to prove it reproduces the target text
	state := editor.NewState(string(before))
	for _, op := range ops {
		if err := state.Apply(op); err != nil {
			fatal("Error replaying operation %d: %s", op.Version, err)
		}
	}
	if state.Content() != string(after) {
		fatal("Replayed operations do not reproduce the target file")
	}
	fmt.Println(successStyle.Sprintf(
		"Replay verified: %d operations, version %d, %d bytes.",
		len(ops), state.Version(), len(state.Content())))
}

func styleOpType(t cowrite.OperationType) string {
	switch t {
	case cowrite.OperationInsert:
		return successStyle.Sprint(string(t))
	case cowrite.OperationDelete:
		return errorStyle.Sprint(string(t))
	default:
		return string(t)
	}
}

func opLength(op *cowrite.Operation) int {
	if op.Type == cowrite.OperationInsert {
		return len(op.Content)
	}
	return op.Length
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
