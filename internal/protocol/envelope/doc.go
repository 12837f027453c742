// Package envelope owns the line-delimited envelope wire format.
//
// Ownership boundary:
// - envelope and item header lines
// - length-prefixed item payload framing
// - json vs bytes payload classification
// - event/session/attachment accessors and builders
//
// Wire layout:
//
//	<envelope header json>\n
//	<item header json>\n
//	<payload, exactly length bytes>\n
//	...
package envelope
