// Package app contains the core application logic. It loads the data
// repository, wires observers (metrics, the optional result reporter) into a
// validation run and drives it to completion, decoupled from any specific
// entrypoint like a CLI.
package app
