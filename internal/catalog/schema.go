package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/ufo-models/ufometa/internal/errors"
)

//go:embed schema.cue
var recordSchema []byte

const recordDefinition = "#Record"

// ValidateRecord checks a synthesized record against the catalog schema. The
// first violation is returned as a SchemaError.
func ValidateRecord(doc *Document) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(recordSchema)
	if schema.Err() != nil {
		return fmt.Errorf("internal error: failed to compile catalog schema: %w", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath(recordDefinition))
	if def.Err() != nil {
		return fmt.Errorf("internal error: schema definition %s not found: %w", recordDefinition, def.Err())
	}

	record := ctx.CompileBytes(data, cue.Filename("record.json"))
	if record.Err() != nil {
		return schemaError(record.Err())
	}
	if err := def.Unify(record).Validate(cue.Concrete(true)); err != nil {
		return schemaError(err)
	}
	return nil
}

func schemaError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &errors.SchemaError{Message: err.Error()}
	}
	first := errs[0]
	path := strings.Join(cueerrors.Path(first), ".")
	msg := first.Error()
	if path != "" {
		msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
	}
	return &errors.SchemaError{Path: path, Message: msg}
}
