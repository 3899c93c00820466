package errors

import (
	"encoding/json"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	switch str {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	default:
		*s = Error
	}
	return nil
}

// Diagnostic is one reportable outcome for a package
type Diagnostic struct {
	Package  string   `json:"package"`
	Phase    string   `json:"phase,omitempty"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// FromError converts an error into a diagnostic for the named package
func FromError(pkg string, err error) Diagnostic {
	return Diagnostic{
		Package:  pkg,
		Phase:    Phase(err),
		Code:     Code(err),
		Message:  err.Error(),
		Severity: Error,
	}
}

// NewWarning builds a warning diagnostic
func NewWarning(pkg, phase, message string) Diagnostic {
	return Diagnostic{
		Package:  pkg,
		Phase:    phase,
		Message:  message,
		Severity: Warning,
	}
}

// JSONOutput represents the JSON structure for batch output
type JSONOutput struct {
	Status   string       `json:"status"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
	Summary  Summary      `json:"summary"`
}

// Summary contains error and warning counts
type Summary struct {
	Packages     int `json:"packages"`
	Failed       int `json:"failed"`
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
}

// FormatDiagnosticsAsJSON formats diagnostics for packages processed in one batch
func FormatDiagnosticsAsJSON(packages int, diags []Diagnostic) (string, error) {
	errorList := []Diagnostic{}
	warningList := []Diagnostic{}
	failed := map[string]bool{}

	for _, d := range diags {
		switch d.Severity {
		case Error:
			errorList = append(errorList, d)
			failed[d.Package] = true
		case Warning:
			warningList = append(warningList, d)
		}
	}

	status := "success"
	if len(errorList) > 0 {
		status = "error"
	} else if len(warningList) > 0 {
		status = "warning"
	}

	output := JSONOutput{
		Status:   status,
		Errors:   errorList,
		Warnings: warningList,
		Summary: Summary{
			Packages:     packages,
			Failed:       len(failed),
			ErrorCount:   len(errorList),
			WarningCount: len(warningList),
		},
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
