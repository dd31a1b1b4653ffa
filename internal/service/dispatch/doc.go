// Package dispatch sends lure messages to recipients and records the
// outcome.
//
// A dispatch issues a fresh token, registers its correlation, and only then
// hands the message to the Messenger, so every delivered lure can be
// attributed. Campaign launches fan recipients out over a bounded worker
// pool; a failure for one recipient never stops the others, and the
// campaign counter is updated once per launch with the number of
// successful sends.
//
// The orchestrator depends only on the narrow interfaces in repository.go.
// It never imports net/http or touches files directly.
package dispatch
