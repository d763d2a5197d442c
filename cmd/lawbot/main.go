// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command lawbot is the terminal client for the LawBot orchestrator.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lawbot",
	Short: "Chat with the LawBot legal assistant",
	Long: `lawbot is the terminal client for the LawBot orchestrator.

Configuration is taken from the environment:

  LAWBOT_SERVER_URL   Orchestrator base URL (default http://localhost:8080)
  LAWBOT_ID_TOKEN     Bearer credential for the orchestrator
  LAWBOT_LOG_LEVEL    debug | info | warn | error (default info)
  LAWBOT_LOG_DIR      When set, also write JSON logs to this directory`,
}

// serverURL returns the orchestrator base URL.
func serverURL() string {
	if url := os.Getenv("LAWBOT_SERVER_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

// idToken returns the bearer credential, or exits with guidance.
func idToken() string {
	token := os.Getenv("LAWBOT_ID_TOKEN")
	if token == "" {
		log.Fatal("LAWBOT_ID_TOKEN is not set. Export a valid ID token and retry.")
	}
	return token
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
