// Package errors provides structured, actionable errors for route
// resolution and asset emission.
//
// Only fatal conditions are errors: the routes directory is not a
// directory, a file-system read failed, configuration is invalid, or an
// asset could not be written. Routing conflicts are reported as
// router.Issue values and never abort resolution.
//
// # Error Categories
//
//   - fs: directory listing and file reads
//   - config: approutes.json / approutes.yaml
//   - assets: asset graph loading and emission
//   - cli: command line usage
//
// # Usage
//
//	err := errors.New("E100").
//	    WithDetail("app/page.tsx must be a directory").
//	    WithSuggestion("Point appDir at the app directory")
//
//	errors.PrintError(os.Stderr, err)
//	// Output:
//	// ERROR E100: Not a directory
//	//
//	//   app/page.tsx must be a directory
//	//
//	//   Hint: Point appDir at the app directory
//	//
//	//   Learn more: https://vango.dev/docs/errors/E100
package errors
