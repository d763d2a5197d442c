// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Manage stored conversations",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your conversations, most recent first",
	RunE:  runChatsList,
}

var chatsShowCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Print one conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsShow,
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <chat-id>",
	Short: "Delete one conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsDelete,
}

func init() {
	chatsCmd.AddCommand(chatsListCmd, chatsShowCmd, chatsDeleteCmd)
	rootCmd.AddCommand(chatsCmd)
}

// apiRequest performs an authenticated request and decodes the JSON reply
// into out (when out is non-nil).
func apiRequest(method, path string, out interface{}) error {
	req, err := http.NewRequest(method, serverURL()+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+idToken())

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		var errBody datatypes.ErrorResponse
		if json.Unmarshal(body, &errBody) == nil && errBody.Message != "" {
			return fmt.Errorf("%s", errBody.Message)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func runChatsList(_ *cobra.Command, _ []string) error {
	var listing struct {
		Chats []datatypes.ConversationSummary `json:"chats"`
	}
	if err := apiRequest("GET", "/v1/chats", &listing); err != nil {
		return err
	}

	if len(listing.Chats) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	for _, chat := range listing.Chats {
		fmt.Printf("%-40s  %3d messages  updated %s\n",
			chat.ID, chat.MessageCount, chat.LastUpdated.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runChatsShow(_ *cobra.Command, args []string) error {
	var conv datatypes.Conversation
	if err := apiRequest("GET", "/v1/chats/"+args[0], &conv); err != nil {
		return err
	}

	fmt.Printf("%s (created %s)\n\n", conv.Title, conv.CreatedAt.Local().Format("2006-01-02 15:04"))
	for _, turn := range conv.Messages {
		speaker := "you"
		if turn.Role == datatypes.RoleAssistant {
			speaker = "lawbot"
		}
		fmt.Printf("%s> %s\n\n", speaker, turn.Text())
	}
	return nil
}

func runChatsDelete(_ *cobra.Command, args []string) error {
	if err := apiRequest("DELETE", "/v1/chats/"+args[0], nil); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
