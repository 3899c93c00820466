package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Metadata file", "Model Name", "Model DOI"}, &TableOptions{NoColor: true})
	table.AddRow("SM_NLO.json", "SM_NLO", "10.5281/zenodo.1")
	table.AddRow("2HDM.json", "2HDM")
	table.AddRow("x.json", "μ-model", "10.5281/zenodo.22", "dropped")
	table.Render()

	want := "" +
		"Metadata file  Model Name  Model DOI\n" +
		"─────────────  ──────────  ─────────────────\n" +
		"SM_NLO.json    SM_NLO      10.5281/zenodo.1\n" +
		"2HDM.json      2HDM\n" +
		"x.json         μ-model     10.5281/zenodo.22\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 3, table.Len())
}

func TestTableWithoutHeadersRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, nil, nil)
	table.AddRow("a")
	table.Render()
	assert.Empty(t, buf.String())
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Number of parameters", "12")
	kv.AddRow("Number of vertices", "4")
	kv.Render()

	assert.Equal(t, ""+
		"Number of parameters: 12\n"+
		"Number of vertices:   4\n", buf.String())

	buf.Reset()
	NewKeyValueTable(&buf, true).Render()
	assert.Empty(t, buf.String())
}

func TestList(t *testing.T) {
	var buf bytes.Buffer
	List(&buf, "SM particles", []string{"e-", "e+"}, true)
	List(&buf, "BSM particles with standard PDG codes", nil, true)

	assert.Equal(t, ""+
		"SM particles:\n"+
		"  • e-\n"+
		"  • e+\n"+
		"BSM particles with standard PDG codes: none\n", buf.String())
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "SM_NLO", true)
	assert.Equal(t, "SM_NLO\n──────\n", buf.String())

	buf.Reset()
	Divider(&buf, 0, true)
	assert.Equal(t, 81, len([]rune(buf.String())))
}
