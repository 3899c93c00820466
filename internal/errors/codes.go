package errors

// Error code constants organized by phase
// U001-U099: Package layout and metadata errors
// U100-U199: Loader (parse/resolve) errors
// U200-U299: Content errors
// U300-U399: Synthesis errors
// U400-U499: Network errors

const (
	// Layout and metadata errors (U001-U099)
	ErrLayout               = "U001"
	ErrMetadataField        = "U002"
	ErrUnresolvableRef      = "U003"
	ErrInvalidArchiveFormat = "U004"

	// Loader errors (U100-U199)
	ErrPackageStructure    = "U100"
	ErrIncompatibleRuntime = "U101"
	ErrMissingDependency   = "U102"
	ErrUnresolvedReference = "U103"
	ErrBadCallSignature    = "U104"

	// Content errors (U200-U299)
	ErrEmptyTable          = "U200"
	ErrDuplicateIdentifier = "U201"

	// Synthesis errors (U300-U399)
	ErrInvalidName        = "U300"
	ErrSchemaViolation    = "U301"
	ErrMissingPredecessor = "U302"

	// Network errors (U400-U499)
	ErrNetwork = "U400"
)

// Phase names used in reports and log fields
const (
	PhaseStructure = "structure"
	PhaseLoader    = "loader"
	PhaseContent   = "content"
	PhaseSynthesis = "synthesis"
	PhaseNetwork   = "network"
)

// ErrorCategory returns the category name for an error code
func ErrorCategory(code string) string {
	if len(code) < 2 {
		return "unknown"
	}

	switch code[1] {
	case '0':
		return PhaseStructure
	case '1':
		return PhaseLoader
	case '2':
		return PhaseContent
	case '3':
		return PhaseSynthesis
	case '4':
		return PhaseNetwork
	default:
		return "unknown"
	}
}
