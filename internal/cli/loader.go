package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/jsonapi"
)

// LoadError represents an error that occurred while loading a document or
// action file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeFormat      = "E002" // Unsupported file extension
	ErrCodeLoadFailed  = "E004" // File could not be parsed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or validation failed
	ErrCodeWriteFailed = "E007" // File or database write error

	// Document validation errors
	ErrCodeMissingType    = "E101" // Resource without a type
	ErrCodeMissingID      = "E102" // Resource without an id
	ErrCodeInvalidPayload = "E103" // Not an accepted JSON:API shape
	ErrCodeInvalidMeta    = "E104" // Meta replacement is not an object

	// Store errors
	ErrCodeNoState          = "E201" // No snapshot saved under the name
	ErrCodeActionFailed     = "E202" // An action failed to apply
	ErrCodeNondeterministic = "E203" // Replay did not reproduce the logged hashes
	ErrCodeNoEntity         = "E204" // Entity or meta key not stored
)

// MapValidationCode maps a document validation error to an error code.
func MapValidationCode(err error) string {
	var verr *jsonapi.ValidationError
	if !errors.As(err, &verr) {
		return ErrCodeGeneric
	}
	switch verr.Code {
	case jsonapi.ErrCodeMissingType:
		return ErrCodeMissingType
	case jsonapi.ErrCodeMissingID:
		return ErrCodeMissingID
	case jsonapi.ErrCodeInvalidPayload:
		return ErrCodeInvalidPayload
	case jsonapi.ErrCodeInvalidMeta:
		return ErrCodeInvalidMeta
	default:
		return ErrCodeGeneric
	}
}

// LoadValue reads a .json, .yaml/.yml or .cue file into an ir.Value.
// CUE files must evaluate to concrete data.
func LoadValue(path string) (ir.Value, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		v, err := ir.Unmarshal(data)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing %s: %v", path, err)}
		}
		return v, nil
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing %s: %v", path, err)}
		}
		v, err := ir.FromAny(raw)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("converting %s: %v", path, err)}
		}
		return v, nil
	case ".cue":
		return loadCUE(path, data)
	default:
		return nil, &LoadError{
			Code:    ErrCodeFormat,
			Message: fmt.Sprintf("unsupported file type %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path)),
		}
	}
}

func loadCUE(path string, data []byte) (ir.Value, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeLoadFailed, err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}

	data, err := value.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}
	v, err := ir.Unmarshal(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("converting %s: %v", path, err)}
	}
	return v, nil
}

// cueLoadError keeps the position of the first CUE error. Conflicts such
// as `1 & 2` carry no Position of their own; their location is the first
// valid input position.
func cueLoadError(code string, err error) *LoadError {
	loadErr := &LoadError{Code: code, Message: err.Error()}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return loadErr
	}
	loadErr.Message = errs[0].Error()
	loadErr.Pos = errs[0].Position()
	if !loadErr.Pos.IsValid() {
		for _, pos := range errs[0].InputPositions() {
			if pos.IsValid() {
				loadErr.Pos = pos
				break
			}
		}
	}
	return loadErr
}

// LoadDocument reads path and parses it as a JSON:API payload. The raw
// value is returned alongside for id extraction.
func LoadDocument(path string) (jsonapi.Payload, ir.Value, error) {
	v, err := LoadValue(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := jsonapi.PayloadFromValue(v)
	if err != nil {
		return nil, v, fmt.Errorf("%s: %w", path, err)
	}
	return p, v, nil
}

// errorCode returns the CLI code for err: a LoadError's own code, a mapped
// validation code, or the generic code.
func errorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if jsonapi.IsValidationError(err) {
		return MapValidationCode(err)
	}
	return ErrCodeGeneric
}
