// Package all wires all built-in engine backends into the engine factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete backend to run, which in
// turn register their factories with the engine package.
//
// In other words, importing this package makes the following engine kinds
// available at runtime:
//
//   - "sqlite"   (retailetl/internal/engine/sqlite)
//   - "postgres" (retailetl/internal/engine/postgres)
//
// Typical usage (in cmd/retailetl/main.go or a similar wiring layer):
//
//	import _ "retailetl/internal/engine/all" // enable all built-in engines
//
// This pattern keeps backend-specific wiring in a single, small package and
// allows the rest of the application (runner, stages, CLI) to depend only on
// the engine abstraction rather than individual backends. A binary that needs
// only one engine can blank-import that backend package directly instead.
package all

import (
	_ "retailetl/internal/engine/postgres"
	_ "retailetl/internal/engine/sqlite"
)
