package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Coded is implemented by every error in the ufometa taxonomy
type Coded interface {
	error
	Code() string
	Phase() string
}

// LayoutError reports a package directory or archive whose layout breaks the contract
type LayoutError struct {
	Path   string
	Reason string
}

func (e *LayoutError) Error() string {
	if e.Path == "" {
		return "invalid package layout: " + e.Reason
	}
	return fmt.Sprintf("invalid package layout in %s: %s", e.Path, e.Reason)
}

func (e *LayoutError) Code() string  { return ErrLayout }
func (e *LayoutError) Phase() string { return PhaseStructure }

// ArchiveFormatError reports a package entry that is neither a supported archive nor a directory
type ArchiveFormatError struct {
	Name string
}

func (e *ArchiveFormatError) Error() string {
	return fmt.Sprintf("valid format for UFO directory not found: %s", e.Name)
}

func (e *ArchiveFormatError) Code() string  { return ErrInvalidArchiveFormat }
func (e *ArchiveFormatError) Phase() string { return PhaseStructure }

// MetadataFieldError reports a missing, empty or malformed metadata field
type MetadataFieldError struct {
	Field  string
	Reason string
}

func (e *MetadataFieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("metadata field %q is missing or empty", e.Field)
	}
	return fmt.Sprintf("metadata field %q: %s", e.Field, e.Reason)
}

func (e *MetadataFieldError) Code() string  { return ErrMetadataField }
func (e *MetadataFieldError) Phase() string { return PhaseStructure }

// UnresolvableReferenceError reports a paper or homepage reference that does not resolve
type UnresolvableReferenceError struct {
	Which  string // "doi", "arXiv", "Model Homepage", "Existing Model Doi", "Model Doi"
	URL    string
	Status int
	Err    error
}

func (e *UnresolvableReferenceError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s reference %s does not resolve: %v", e.Which, e.URL, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s reference %s does not resolve (status %d)", e.Which, e.URL, e.Status)
	default:
		return fmt.Sprintf("%s reference %s does not resolve", e.Which, e.URL)
	}
}

func (e *UnresolvableReferenceError) Unwrap() error { return e.Err }
func (e *UnresolvableReferenceError) Code() string  { return ErrUnresolvableRef }
func (e *UnresolvableReferenceError) Phase() string { return PhaseStructure }

// PackageStructureError lists every required package file that is missing
type PackageStructureError struct {
	Missing []string
}

func (e *PackageStructureError) Error() string {
	return "model package is missing required files: " + strings.Join(e.Missing, ", ")
}

func (e *PackageStructureError) Code() string  { return ErrPackageStructure }
func (e *PackageStructureError) Phase() string { return PhaseLoader }

// ImportKind classifies why a package could not be resolved
type ImportKind int

const (
	IncompatibleRuntime ImportKind = iota
	MissingDependency
	UnresolvedReference
	BadCallSignature
)

// String returns the string representation of the import failure kind
func (k ImportKind) String() string {
	switch k {
	case IncompatibleRuntime:
		return "incompatible-runtime"
	case MissingDependency:
		return "missing-dependency"
	case UnresolvedReference:
		return "unresolved-reference"
	case BadCallSignature:
		return "bad-call-signature"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for ImportKind
func (k ImportKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// ImportFailure reports a package whose source cannot be resolved into content tables
type ImportFailure struct {
	Kind    ImportKind
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ImportFailure) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Kind, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Code returns the kind-specific error code
func (e *ImportFailure) Code() string {
	switch e.Kind {
	case IncompatibleRuntime:
		return ErrIncompatibleRuntime
	case MissingDependency:
		return ErrMissingDependency
	case UnresolvedReference:
		return ErrUnresolvedReference
	default:
		return ErrBadCallSignature
	}
}

func (e *ImportFailure) Phase() string { return PhaseLoader }

// EmptyTableError reports a content table that resolved to zero objects
type EmptyTableError struct {
	Kind string
	File string
}

func (e *EmptyTableError) Error() string {
	return fmt.Sprintf("%s defines no %s objects", e.File, e.Kind)
}

func (e *EmptyTableError) Code() string  { return ErrEmptyTable }
func (e *EmptyTableError) Phase() string { return PhaseContent }

// DuplicateIdentifierError lists particle identifiers declared more than once
type DuplicateIdentifierError struct {
	IDs []int
}

// NewDuplicateIdentifierError builds the error with sorted, unique ids
func NewDuplicateIdentifierError(ids []int) *DuplicateIdentifierError {
	seen := make(map[int]bool, len(ids))
	unique := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Ints(unique)
	return &DuplicateIdentifierError{IDs: unique}
}

func (e *DuplicateIdentifierError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = strconv.Itoa(id)
	}
	return "particles share pdg codes: " + strings.Join(parts, ", ")
}

func (e *DuplicateIdentifierError) Code() string  { return ErrDuplicateIdentifier }
func (e *DuplicateIdentifierError) Phase() string { return PhaseContent }

// InvalidNameError reports a catalog file name that cannot be derived
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid filename: %q", e.Name)
}

func (e *InvalidNameError) Code() string  { return ErrInvalidName }
func (e *InvalidNameError) Phase() string { return PhaseSynthesis }

// SchemaError reports a synthesized record that violates the catalog schema
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "catalog record: " + e.Message
	}
	return fmt.Sprintf("catalog record field %s: %s", e.Path, e.Message)
}

func (e *SchemaError) Code() string  { return ErrSchemaViolation }
func (e *SchemaError) Phase() string { return PhaseSynthesis }

// MissingPredecessorError reports a new version whose previous deposition cannot be located
type MissingPredecessorError struct {
	DOI string
}

func (e *MissingPredecessorError) Error() string {
	return fmt.Sprintf("the zenodo entry corresponding to DOI %s not found", e.DOI)
}

func (e *MissingPredecessorError) Code() string  { return ErrMissingPredecessor }
func (e *MissingPredecessorError) Phase() string { return PhaseSynthesis }

// NetworkError reports a failed call to the archive or catalog service
type NetworkError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

func (e *NetworkError) Unwrap() error { return e.Err }
func (e *NetworkError) Code() string  { return ErrNetwork }
func (e *NetworkError) Phase() string { return PhaseNetwork }

// Code returns the taxonomy code of err, or "" if err is not part of it
func Code(err error) string {
	var c Coded
	if stderrors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// Phase returns the pipeline phase that produced err, or "" if unknown
func Phase(err error) string {
	var c Coded
	if stderrors.As(err, &c) {
		return c.Phase()
	}
	return ""
}

// IsImportKind reports whether err is an ImportFailure of the given kind
func IsImportKind(err error, kind ImportKind) bool {
	var f *ImportFailure
	return stderrors.As(err, &f) && f.Kind == kind
}
