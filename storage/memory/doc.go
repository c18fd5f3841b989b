// Package memory provides in-process implementations of the storage
// interfaces. Nothing survives the process; the stores back tests and
// sessions run without external services.
package memory
