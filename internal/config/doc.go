// Package config declares every option of a visual place recognition
// training and evaluation run, parses them from command-line arguments with
// an explicit environment lookup, and checks them for consistency before
// handing out a single Config record. Records can be saved and restored as
// YAML run manifests.
package config
