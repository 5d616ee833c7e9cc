// Package main hosts the audiograb CLI.
//
// The serve command runs the HTTP service. The remaining commands run one
// pipeline request from the terminal, inspect tags written to a file, report
// external dependencies, sweep stale files and scaffold configuration.
package main
