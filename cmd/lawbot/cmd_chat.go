// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexhaven/lawbot/pkg/client"
	"github.com/lexhaven/lawbot/pkg/logging"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with LawBot.

Commands inside the session:
  /new    start a fresh conversation
  /id     print the current conversation id
  /quit   exit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LAWBOT_LOG_LEVEL")),
		LogDir:  os.Getenv("LAWBOT_LOG_DIR"),
		Service: "cli",
	})
	defer logger.Close()

	dispatcher := client.NewDispatcher(serverURL(), client.StaticCredential(idToken()), logger)

	fmt.Println("LawBot legal assistant. /quit to exit, /new for a fresh conversation.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return nil
		case line == "/new":
			dispatcher.Clear()
			fmt.Println("Started a new conversation.")
			continue
		case line == "/id":
			if id := dispatcher.ChatID(); id != "" {
				fmt.Println(id)
			} else {
				fmt.Println("(no conversation yet)")
			}
			continue
		}

		reply, err := dispatcher.Send(cmd.Context(), line, nil)
		if err != nil {
			logger.Debug("turn failed", "error", err)
		}
		printReply(reply)
	}
}

// printReply renders an assistant message, keeping the disclaimer visually
// separate from the answer body.
func printReply(reply client.Message) {
	switch content := reply.Content.(type) {
	case client.AnnotatedContent:
		fmt.Printf("\nlawbot> %s\n", content.Main)
		if content.Disclaimer != "" {
			fmt.Printf("\n  [%s]\n\n", content.Disclaimer)
		}
	default:
		fmt.Printf("\nlawbot> %s\n\n", reply.Content.Body())
	}
}
