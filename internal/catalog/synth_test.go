package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/model"
)

const baseMetadata = `{
  "Author": [{"name": "Ada", "contact": "ada@example.org"}],
  "Paper_id": {"arXiv": "2101.00001"},
  "Description": "A scalar extension",
  "Custom field": "kept"
}`

func derivedFixture() *model.Derived {
	d := model.NewDerived()
	d.Parameters = 12
	d.Vertices = 40
	d.CouplingOrders = 2
	d.Couplings = 30
	d.Lorentz = 9
	d.Decays = 3
	d.AllParticles["e-"] = 11
	d.AllParticles["S1"] = 9000001
	d.SM["e-"] = 11
	d.BSM["S1"] = 9000001
	return d
}

func parseBase(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(data))
	require.NoError(t, err)
	return doc
}

func TestSynthesize(t *testing.T) {
	base := parseBase(t, baseMetadata)

	doc, err := Synthesize(base, derivedFixture(), UserInput{Name: "S1 model", Version: "1.0", Homepage: "https://example.org"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		KeyAuthor, KeyPaperID, KeyDescription, "Custom field",
		KeyModelName, KeyHomepage, KeyModelDOI, KeyModelVersion, KeyPythonVersion, KeyNLO,
		KeyAllParticles, KeySMParticles, KeyBSMParticles, KeyPDGLike,
		KeyParameters, KeyVertices, KeyCouplingOrders, KeyCouplings, KeyLorentz, KeyPropagators, KeyDecays,
	}, doc.Keys())

	assert.Equal(t, "S1 model", doc.String(KeyModelName))
	assert.Equal(t, "https://example.org", doc.String(KeyHomepage))
	assert.Equal(t, UnassignedDOI, doc.String(KeyModelDOI))
	assert.Equal(t, "kept", doc.String("Custom field"))

	var particles map[string]int
	_, err = doc.Get(KeyAllParticles, &particles)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"e-": 11, "S1": 9000001}, particles)

	raw, _ := doc.Raw(KeyPDGLike)
	assert.Equal(t, "{}", string(raw))
	raw, _ = doc.Raw(KeyPythonVersion)
	assert.Equal(t, "3", string(raw))

	// the input document is untouched
	assert.False(t, base.Has(KeyModelName))
}

func TestSynthesizeKeepsExistingHomepageAndDOI(t *testing.T) {
	base := parseBase(t, `{
  "Author": [{"name": "Ada", "contact": "ada@example.org"}],
  "Paper_id": {"doi": "10.1000/xyz"},
  "Description": "d",
  "Model Doi": "10.5281/zenodo.42",
  "Model Homepage": ""
}`)

	doc, err := Synthesize(base, derivedFixture(), UserInput{Name: "S1", Version: "2", Homepage: "https://ignored.example.org"})
	require.NoError(t, err)
	assert.Equal(t, "10.5281/zenodo.42", doc.String(KeyModelDOI))
	assert.Equal(t, "", doc.String(KeyHomepage))
	assert.Equal(t, []string{KeyAuthor, KeyPaperID, KeyDescription, KeyModelDOI, KeyHomepage}, doc.Keys()[:5])
}

func TestSynthesizeRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		derived func(d *model.Derived)
		input   UserInput
	}{
		{
			name:  "empty version",
			input: UserInput{Name: "S1"},
		},
		{
			name:  "empty name",
			input: UserInput{Version: "1"},
		},
		{
			name:    "no parameters",
			derived: func(d *model.Derived) { d.Parameters = 0 },
			input:   UserInput{Name: "S1", Version: "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := derivedFixture()
			if tt.derived != nil {
				tt.derived(d)
			}

			doc, err := Synthesize(parseBase(t, baseMetadata), d, tt.input)
			assert.Nil(t, doc)
			var schema *errors.SchemaError
			require.ErrorAs(t, err, &schema)
			assert.Equal(t, errors.ErrSchemaViolation, errors.Code(err))
		})
	}
}

func TestValidateRecordRequiresAuthors(t *testing.T) {
	doc, err := Synthesize(parseBase(t, baseMetadata), derivedFixture(), UserInput{Name: "S1", Version: "1"})
	require.NoError(t, err)

	require.NoError(t, doc.Set(KeyAuthor, []Author{}))
	err = ValidateRecord(doc)
	var schema *errors.SchemaError
	require.ErrorAs(t, err, &schema)
	assert.Contains(t, err.Error(), "Author")
}
