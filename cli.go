package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bluefunda/greenapi-console/form"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage error")

// CommandConfig holds command-specific configuration
type CommandConfig struct {
	Action string // settings, state, send-message, send-file-by-url
	Fields form.Fields

	// ShowToken prints the token unmasked in the status output.
	ShowToken bool
	// Quiet suppresses status lines; the response is always printed.
	Quiet bool
}

// exactArgs wraps cobra.ExactArgs so argument errors map to ExitMisuse.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

// Settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Call getSettings for the instance",
	Long: `Fetch the instance settings through the backend.

EXAMPLES:
  greenapi-console settings --id-instance 1101000001 --api-token d75b3a66...
  GREENAPI_ID_INSTANCE=1101000001 GREENAPI_API_TOKEN=d75b3a66... greenapi-console settings`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, newCommandConfig("settings"))
	},
}

// State command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Call getStateInstance for the instance",
	Long: `Fetch the instance authorization state through the backend.

EXAMPLES:
  greenapi-console state --normal`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, newCommandConfig("state"))
	},
}

// Send message command
var sendMessageCmd = &cobra.Command{
	Use:   "send-message CHAT_ID MESSAGE",
	Short: "Call sendMessage",
	Long: `Send a text message. CHAT_ID may be a bare phone number (digits only),
a personal chat id (79001234567@c.us) or a group id (...@g.us).

EXAMPLES:
  greenapi-console send-message 79001234567 "Hello"
  greenapi-console send-message 79001234567@c.us "Hello"`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := newCommandConfig("send-message")
		config.Fields.SendChatID = args[0]
		config.Fields.SendMessage = args[1]
		return runAction(cmd, config)
	},
}

// Send file by URL command
var sendFileByURLCmd = &cobra.Command{
	Use:   "send-file-by-url CHAT_ID URL",
	Short: "Call sendFileByUrl",
	Long: `Send a file by URL. The file name is taken from the last URL path segment.

EXAMPLES:
  greenapi-console send-file-by-url 79001234567 https://example.com/report.pdf`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := newCommandConfig("send-file-by-url")
		config.Fields.FileChatID = args[0]
		config.Fields.FileURL = args[1]
		return runAction(cmd, config)
	},
}

func newCommandConfig(action string) *CommandConfig {
	rootConfig.Mode = "cli"
	return &CommandConfig{
		Action: action,
		Fields: form.Fields{
			IDInstance:       rootConfig.IDInstance,
			APITokenInstance: rootConfig.APIToken,
		},
		ShowToken: rootConfig.ShowToken,
		Quiet:     rootConfig.Quiet && !rootConfig.Normal && !rootConfig.Verbose,
	}
}

func runAction(cmd *cobra.Command, config *CommandConfig) error {
	return HandleAction(cmd.Context(), config, appConfig.Console.APIBase, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// HandleAction runs one form action against apiBase. The response goes to out,
// status lines to status unless quiet.
func HandleAction(ctx context.Context, config *CommandConfig, apiBase string, out, status io.Writer, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if config.Quiet {
		status = nil
	}

	view := form.NewTerminalView(out, status)
	controller := form.NewController(apiBase, view, log)

	if config.ShowToken {
		controller.ToggleTokenVisibility()
	}
	if !config.Quiet {
		view.Credentials(strings.TrimSpace(config.Fields.IDInstance), strings.TrimSpace(config.Fields.APITokenInstance))
	}

	var (
		result form.Result
		err    error
	)
	switch config.Action {
	case "settings":
		result, err = controller.GetSettings(ctx, config.Fields)
	case "state":
		result, err = controller.GetState(ctx, config.Fields)
	case "send-message":
		result, err = controller.SendMessage(ctx, config.Fields)
	case "send-file-by-url":
		result, err = controller.SendFileByURL(ctx, config.Fields)
	case "":
		return fmt.Errorf("%w: action required. Try '%s --help' for usage information", errUsage, PROGRAM_NAME)
	default:
		return fmt.Errorf("%w: unknown action: %s. Try '%s --help' for available actions", errUsage, config.Action, PROGRAM_NAME)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", config.Action, err)
	}
	if result.State != form.StateSuccess {
		return fmt.Errorf("%s: backend returned status %d", config.Action, result.StatusCode)
	}

	log.Debug("Action completed", zap.String("action", config.Action), zap.Int("status", result.StatusCode))
	return nil
}
