// Package tracking records recipient engagement against dispatch tokens.
//
// Every recording call resolves the token through the correlation store and
// denormalizes the recipient and campaign into the appended record. Unknown
// or malformed tokens are still recorded, with empty attribution, so that
// stray hits remain visible to the operator.
package tracking
