package ui

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
		excludes []string
	}{
		{
			name: "context box",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "package failed: SM.zip",
				Problem: "missing file particles.py",
			},
			contains: []string{
				"❌ PACKAGE FAILED: SM.ZIP\n",
				"   missing file particles.py\n",
			},
		},
		{
			name: "multi-line problem is indented",
			opts: ErrorOptions{
				Context: "PACKAGE FAILED",
				Problem: "first\nsecond",
			},
			contains: []string{"   first\n", "   second\n"},
		},
		{
			name: "suggestions",
			opts: ErrorOptions{
				Context:     "CATALOG FILE NOT FOUND",
				Problem:     "Cannot find \"SM_NL0.json\" in the catalog.",
				Suggestions: []string{"SM_NLO.json", "SM.json"},
			},
			contains: []string{"Did you mean: SM_NLO.json, SM.json?"},
		},
		{
			name: "help commands",
			opts: ErrorOptions{
				Problem:      "no packages listed",
				HelpCommands: []string{"Get help: ufometa validate --help"},
			},
			contains: []string{"→ Get help: ufometa validate --help"},
			excludes: []string{"Did you mean"},
		},
		{
			name: "warning",
			opts: ErrorOptions{
				Level:   ErrorLevelWarning,
				Problem: "contact is not a valid email address",
			},
			contains: []string{"⚠️ contact is not a valid email address"},
		},
		{
			name: "info",
			opts: ErrorOptions{
				Level:   ErrorLevelInfo,
				Problem: "catalog index refreshed",
			},
			contains: []string{"ℹ️ catalog index refreshed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.NoColor = true
			result := FormatError(tt.opts)
			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("expected output to contain %q, got:\n%s", expected, result)
				}
			}
			for _, unexpected := range tt.excludes {
				if strings.Contains(result, unexpected) {
					t.Errorf("expected output not to contain %q, got:\n%s", unexpected, result)
				}
			}
			if strings.Contains(result, "\x1b[") {
				t.Errorf("expected no escape codes with NoColor, got %q", result)
			}
		})
	}
}

func TestWriteHelpers(t *testing.T) {
	var buf bytes.Buffer
	WriteError(&buf, ErrorOptions{Problem: "boom", NoColor: true})
	WriteSuccess(&buf, "uploaded SM.json", true)

	want := "❌ boom\n✓ uploaded SM.json\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestDomainMessages(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		contains []string
	}{
		{
			name:   "package",
			output: PackageError("models/SM.zip", stderrors.New("particles.py: bad spin"), "Nothing was uploaded.", true),
			contains: []string{
				"PACKAGE FAILED: MODELS/SM.ZIP",
				"particles.py: bad spin",
				"Nothing was uploaded.",
				"ufometa validate",
			},
		},
		{
			name:     "catalog file",
			output:   CatalogFileNotFoundError("SM_NL0.json", []string{"SM_NLO.json"}, true),
			contains: []string{`Cannot find "SM_NL0.json"`, "Did you mean: SM_NLO.json?", "ufometa search"},
		},
		{
			name:     "auth",
			output:   AuthError("ZENODO", "UFOMETA_ZENODO_TOKEN", "token rejected", true),
			contains: []string{"ZENODO ACCESS DENIED", "token rejected", "export UFOMETA_ZENODO_TOKEN=<token>"},
		},
		{
			name:     "config",
			output:   ConfigError("cache.backend must be memory or redis", true),
			contains: []string{"CONFIGURATION ERROR", "cache.backend", "ufometa.yaml"},
		},
		{
			name:     "warning",
			output:   Warning("homepage did not resolve", true),
			contains: []string{"⚠️ homepage did not resolve"},
		},
		{
			name:     "info",
			output:   Info("3 files downloaded", true),
			contains: []string{"ℹ️ 3 files downloaded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, expected := range tt.contains {
				if !strings.Contains(tt.output, expected) {
					t.Errorf("expected output to contain %q, got:\n%s", expected, tt.output)
				}
			}
		})
	}
}
