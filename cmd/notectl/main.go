// Package main provides notectl, the admin CLI for the note service.
//
// Usage:
//
//	notectl [flags] <command> [args]
//
// Commands:
//
//	process    - Turn a local recording into a stored note
//	transcribe - Print the transcript of a local recording
//	styles     - List, add and import note styles
//	notes      - List, reprocess and export notes
//
// notectl opens the same data directory as the API server, so the server
// must be stopped while it runs.
package main

import (
	"fmt"
	"os"

	"talknote-go/cmd/notectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
