// Package application wires the configuration loader to its collaborators:
// the logger, the device counter used by the SARE check, and the writer that
// receives the resolved run manifest. It keeps the main package focused on
// process concerns such as exit codes.
package application
