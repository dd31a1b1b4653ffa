// Package domain defines the core business types for the phishing simulator.
//
// Types in this package are pure value objects with no behavior, no storage
// dependencies, and no HTTP concerns. They are the shared language between
// handlers, services, and repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *os.File, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants, enums, and sentinel errors belong here
package domain
