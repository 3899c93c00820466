package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentKeepsOrderAndUnknownKeys(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"Zeta": 1, "Author": [{"name": "Ada"}], "Custom": {"nested": [1, 2]}, "Zeta": 2}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Zeta", "Author", "Custom"}, doc.Keys())
	raw, ok := doc.Raw("Zeta")
	require.True(t, ok)
	assert.Equal(t, "2", string(raw))

	out, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"Zeta":2,"Author":[{"name": "Ada"}],"Custom":{"nested": [1, 2]}}`, string(out))
}

func TestParseDocumentRejectsNonObjects(t *testing.T) {
	for _, input := range []string{``, `[]`, `"x"`, `{"a": 1} {"b": 2}`, `{"a": }`} {
		_, err := ParseDocument([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestDocumentSetAndDelete(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.Set("b", 1))
	require.NoError(t, doc.Set("a", "x"))
	require.NoError(t, doc.Set("b", 2))
	require.NoError(t, doc.SetDefault("a", "ignored"))
	require.NoError(t, doc.SetDefault("c", true))

	assert.Equal(t, []string{"b", "a", "c"}, doc.Keys())
	assert.Equal(t, "x", doc.String("a"))
	assert.Equal(t, "", doc.String("b"))

	doc.Delete("a")
	doc.Delete("missing")
	assert.Equal(t, []string{"b", "c"}, doc.Keys())
	assert.False(t, doc.Has("a"))
}

func TestDocumentCloneIsIndependent(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.Set(KeyModelDOI, "0"))

	clone := doc.Clone()
	require.NoError(t, clone.Set(KeyModelDOI, "10.5281/zenodo.1"))
	require.NoError(t, clone.Set(KeyModelName, "S1"))

	assert.Equal(t, "0", doc.String(KeyModelDOI))
	assert.False(t, doc.Has(KeyModelName))
}

func TestDocumentTypedGetters(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
  "Author": [{"name": "Ada", "contact": "ada@example.org", "affiliation": "CERN"}],
  "Paper_id": {"doi": "https://doi.org/10.1000/xyz", "arXiv": "2101.00001", "inspire": 42}
}`))
	require.NoError(t, err)

	authors, err := doc.Authors()
	require.NoError(t, err)
	assert.Equal(t, []Author{{Name: "Ada", Contact: "ada@example.org", Affiliation: "CERN"}}, authors)

	paper, err := doc.Paper()
	require.NoError(t, err)
	assert.Equal(t, "2101.00001", paper.ArXiv)
	assert.Equal(t, []string{"https://doi.org/10.1000/xyz", "2101.00001"}, doc.PaperIDs())
}

func TestDocumentEncodeDoesNotEscapeHTML(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.Set(KeyDescription, "a <b> & c"))

	var buf strings.Builder
	require.NoError(t, doc.Encode(&buf))
	assert.Equal(t, "{\n  \"Description\": \"a <b> & c\"\n}\n", buf.String())
}
