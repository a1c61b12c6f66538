package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// File System Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryFS,
		Message:  "Not a directory",
		Detail:   "The routes directory must resolve to a directory.",
		DocURL:   "https://vango.dev/docs/errors/E100",
	},
	"E101": {
		Category: CategoryFS,
		Message:  "File system read failed",
		Detail:   "A directory listing or file read failed while resolving routes.",
		DocURL:   "https://vango.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryFS,
		Message:  "App directory not found",
		Detail:   "Neither app/ nor src/app/ exists in the project.",
		DocURL:   "https://vango.dev/docs/errors/E102",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   "https://vango.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Configuration not found",
		Detail:   "No approutes.json or approutes.yaml was found.",
		DocURL:   "https://vango.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or malformed.",
		DocURL:   "https://vango.dev/docs/errors/E122",
	},

	// ============================================
	// Asset Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryAssets,
		Message:  "Asset content unavailable",
		Detail:   "The content of an output asset could not be produced.",
		DocURL:   "https://vango.dev/docs/errors/E140",
	},
	"E141": {
		Category: CategoryAssets,
		Message:  "Asset write failed",
		Detail:   "An output asset could not be written to its target.",
		DocURL:   "https://vango.dev/docs/errors/E141",
	},
	"E142": {
		Category: CategoryAssets,
		Message:  "Invalid asset graph",
		Detail:   "The asset graph file is malformed or references unknown assets.",
		DocURL:   "https://vango.dev/docs/errors/E142",
	},
}

// GetAllCodes returns all registered error codes, sorted.
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
