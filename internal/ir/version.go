package ir

// Version constants for the persisted state format and the tool.
const (
	// FormatVersion is the version of the serialized state tree layout.
	FormatVersion = "1"

	// ToolVersion is the jsonapistore release version.
	ToolVersion = "0.1.0"
)
