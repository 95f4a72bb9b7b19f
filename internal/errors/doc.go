// Package errors provides structured, actionable error messages for the
// blospray command line.
//
// Library packages return plain sentinel and typed errors. At the command
// boundary they are converted with Classify into a *BlosprayError that
// explains what went wrong and suggests how to fix it.
//
// # Error Categories
//
// Errors are organized into categories:
//   - connection: the render server cannot be reached or went away
//   - handshake: the server refused the session
//   - protocol: the session was driven out of order or sent bad data
//   - scene: the scene file cannot be read or is inconsistent
//   - config: blospray.json is missing or invalid
//   - output: an image sink or the history database failed
//   - cli: bad command-line usage
//
// # Error Codes
//
// Each error has a unique code (e.g., "B001") that maps to a short message
// and a detailed explanation.
//
// # Usage
//
//	err := errors.New("B021").
//	    WithLocation("shots/head.yaml", 12, 0).
//	    WithSuggestion("Check the indentation of the objects list")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR B021 [scene] Invalid scene file
//	//
//	//   shots/head.yaml:12
//	//
//	//       10 | objects:
//	//       11 |   - name: Camera
//	//    >   12 |    type: camera
//	//       13 |   - name: Sun
//	//       14 |     type: light
//	//
//	//   The scene file could not be decoded, or it references meshes, materials
//	//   or parents it does not define.
//	//
//	//   Hint: Check the indentation of the objects list
//
// Errors wrapping an exporter diagnostic also name the entity, and the
// wrapped chain is listed one layer per line under "Caused by".
package errors
