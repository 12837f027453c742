// Package tools runs instrumented programs and collects what they write.
//
// Ownership boundary:
// - process execution with captured stdout and stderr
//
// - exit status normalization
package tools
