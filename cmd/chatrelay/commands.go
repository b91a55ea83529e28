package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/chatrelay/internal/config"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Send a message through a running relay",
	Long: `Send a message through a running relay and print the model's answer.

With no message the relay's default message is sent; without --model the
relay's default model is used.

Examples:
  chatrelay chat
  chatrelay chat "Explain goroutines in two sentences" --model llama3.2
  chatrelay chat --raw "hello" | jq .message.content`,
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		serverURL, _ := cmd.Flags().GetString("server")
		raw, _ := cmd.Flags().GetBool("raw")
		showThinking, _ := cmd.Flags().GetBool("show-thinking")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		var client *apiClient
		if serverURL != "" {
			client = &apiClient{
				baseURL:    strings.TrimRight(serverURL, "/"),
				httpClient: &http.Client{Timeout: timeout},
			}
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client = relayClient(cfg, timeout)
		}

		req := map[string]any{}
		if len(args) > 0 {
			req["user_message"] = strings.Join(args, " ")
		}
		if model != "" {
			req["model_name"] = model
		}

		resp, err := client.post(cmd.Context(), "/chat", req)
		if err != nil {
			return err
		}
		body, err := readBody(resp)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if raw {
			_, err := fmt.Fprintln(out, strings.TrimSpace(string(body)))
			return err
		}

		var reply chatReply
		if err := json.Unmarshal(body, &reply); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		thinking, answer := splitThinking(reply.Message.Content)
		if reply.Message.Thinking != "" {
			thinking = strings.TrimSpace(reply.Message.Thinking)
		}
		if showThinking && thinking != "" {
			fmt.Fprintln(out, colorize(colorGray, thinking))
			fmt.Fprintln(out)
		}

		pretty := !noColor && stdoutIsTerminal()
		return renderMarkdown(out, answer, pretty)
	},
}

func init() {
	chatCmd.Flags().String("model", "", "Ollama model name (default: the relay's chat.default_model)")
	chatCmd.Flags().String("server", "", "relay base URL (default: derived from server.host and server.port)")
	chatCmd.Flags().Bool("raw", false, "print the relay's JSON response unchanged")
	chatCmd.Flags().Bool("show-thinking", false, "print the model's reasoning before the answer")
	chatCmd.Flags().Duration("timeout", 0, "request timeout (0 waits indefinitely)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: fmt.Sprintf(`Set a configuration value in the config file.

Valid keys: %s`, strings.Join(config.ValidKeys(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(configPath, key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the chatrelay version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chatrelay version %s\n", version)
	},
}
