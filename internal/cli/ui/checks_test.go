package ui

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewCheckPrinter(&buf, true)

	p.Check("File count check", nil)
	p.Check("Check paper information in initial metadata", stderrors.New("doi 10.1000/x does not resolve\nstatus 404"))
	p.Check("Check model files and imports", nil)

	assert.Equal(t, ""+
		"File count check: PASSED!\n"+
		"Check paper information in initial metadata: FAILED!\n"+
		"   doi 10.1000/x does not resolve\n"+
		"   status 404\n"+
		"Check model files and imports: PASSED!\n", buf.String())

	passed, failed := p.Counts()
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, failed)
}
