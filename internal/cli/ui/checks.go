package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// CheckPrinter prints one line per completed check:
//
//	Check model files and imports: PASSED!
//	Check paper information in initial metadata: FAILED!
//	   doi 10.1000/x does not resolve
type CheckPrinter struct {
	writer  io.Writer
	noColor bool

	mu     sync.Mutex
	passed int
	failed int
}

// NewCheckPrinter creates a printer writing to w
func NewCheckPrinter(w io.Writer, noColor bool) *CheckPrinter {
	return &CheckPrinter{writer: w, noColor: noColor}
}

// Check records and prints the outcome of the named check. A nil err passes.
func (p *CheckPrinter) Check(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	if p.noColor {
		green.DisableColor()
		red.DisableColor()
	}

	if err == nil {
		p.passed++
		fmt.Fprintf(p.writer, "%s: %s\n", name, green.Sprint("PASSED!"))
		return
	}
	p.failed++
	fmt.Fprintf(p.writer, "%s: %s\n", name, red.Sprint("FAILED!"))
	for _, line := range strings.Split(err.Error(), "\n") {
		red.Fprintf(p.writer, "   %s\n", line)
	}
}

// Counts returns how many checks passed and failed so far
func (p *CheckPrinter) Counts() (passed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.passed, p.failed
}
