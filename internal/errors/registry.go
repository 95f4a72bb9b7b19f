package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Connection Errors (B001-B019)
	// ============================================

	"B001": {
		Category:   CategoryConnection,
		Message:    "Cannot connect to render server",
		Detail:     "The render server did not accept a connection. Nothing was sent and no session was started.",
		Suggestion: "Check that the server is running and that --server (or server.host and server.port in blospray.json) matches its address",
	},
	"B002": {
		Category:   CategoryHandshake,
		Message:    "Render server rejected the session",
		Detail:     "The server answered HELLO with a failure, usually because it speaks a different protocol version.",
		Suggestion: "Use a server built from the same release, or set protocol_version in blospray.json",
	},
	"B003": {
		Category:   CategoryConnection,
		Message:    "Connection to render server lost",
		Detail:     "The connection failed in the middle of the session. The session was abandoned; nothing is resumed automatically.",
		Suggestion: "Check the server log, then run the command again",
	},
	"B004": {
		Category: CategoryProtocol,
		Message:  "Session operation out of order",
		Detail:   "A session must be connected, then exported, then rendered.",
	},
	"B005": {
		Category: CategoryProtocol,
		Message:  "Message too large",
		Detail:   "A message body exceeded the 16 MiB frame limit.",
	},

	// ============================================
	// Scene Errors (B020-B039)
	// ============================================

	"B020": {
		Category:   CategoryScene,
		Message:    "Scene file not found",
		Suggestion: "Pass the path of a YAML scene file",
	},
	"B021": {
		Category: CategoryScene,
		Message:  "Invalid scene file",
		Detail:   "The scene file could not be decoded, or it references meshes, materials or parents it does not define.",
	},
	"B022": {
		Category:   CategoryScene,
		Message:    "Undefined variable in custom property",
		Detail:     "A custom property references a ${NAME} variable that is not defined. Only ${frame} is available.",
		Suggestion: "Fix the property or run with --substitution keep",
	},

	// ============================================
	// Config Errors (B040-B059)
	// ============================================

	"B040": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Suggestion: "Check blospray.json against the documented fields",
	},
	"B041": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Suggestion: "Create blospray.json or pass --config",
	},

	// ============================================
	// Output Errors (B060-B079)
	// ============================================

	"B060": {
		Category: CategoryOutput,
		Message:  "Cannot store rendered image",
		Detail:   "The image sink failed to write a framebuffer update.",
	},
	"B061": {
		Category:   CategoryOutput,
		Message:    "History database error",
		Suggestion: "Check that history_db points to a writable location",
	},
	"B062": {
		Category: CategoryOutput,
		Message:  "Preview server failed",
	},

	// ============================================
	// CLI Errors (B080-B099)
	// ============================================

	"B080": {
		Category: CategoryCLI,
		Message:  "Invalid command-line usage",
	},
	"B081": {
		Category: CategoryCLI,
		Message:  "Render canceled",
		Detail:   "The render was canceled before the sample budget was reached.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
