package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonapistore/internal/jsonapi"
	"github.com/roach88/jsonapistore/internal/state"
)

// DocumentError is one invalid document.
type DocumentError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Index   *int   `json:"index,omitempty"` // resource position within the batch
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool            `json:"valid"`
	Documents int             `json:"documents"`
	Errors    []DocumentError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document>...",
		Short: "Validate JSON:API documents without storing them",
		Long: `Validate JSON:API documents by normalizing each into an empty state.

Every document is checked, so one run reports all invalid documents. Nothing
is written.

Exit codes:
  0 - All documents valid
  1 - One or more documents invalid
  2 - Command error`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	errs := ValidateDocuments(paths, formatter)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, len(paths), errs)
	}
	return formatter.Emit(ValidationResult{Valid: true, Documents: len(paths)}, func(w io.Writer) {
		fmt.Fprintln(w, "✓ All documents valid")
	})
}

// ValidateDocuments checks each document and returns one error per invalid
// document.
func ValidateDocuments(paths []string, formatter *OutputFormatter) []DocumentError {
	normalizer := state.NewNormalizer()
	var errs []DocumentError
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		if err := validateDocument(normalizer, path); err != nil {
			errs = append(errs, newDocumentError(path, err))
		}
	}
	return errs
}

func validateDocument(n *state.Normalizer, path string) error {
	p, _, err := LoadDocument(path)
	if err != nil {
		return err
	}
	_, err = n.InsertOrUpdateEntities(state.State{}, p)
	return err
}

func newDocumentError(path string, err error) DocumentError {
	de := DocumentError{File: path, Code: errorCode(err), Message: err.Error()}

	var verr *jsonapi.ValidationError
	if errors.As(err, &verr) {
		de.Field = verr.Field
		de.Message = verr.Error()
		if verr.Index >= 0 {
			index := verr.Index
			de.Index = &index
		}
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		de.Message = loadErr.Message
		if loadErr.Pos.IsValid() {
			de.Line = loadErr.Pos.Line()
		}
	}
	return de
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, total int, errs []DocumentError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:     false,
			Documents: total,
			Errors:    errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		if err := formatter.Respond(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
