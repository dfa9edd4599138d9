package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"botbridge/pkg/bot"
	"botbridge/pkg/channel"
	"botbridge/pkg/config"
	"botbridge/pkg/translator"

	"github.com/spf13/cobra"
)

const (
	directionOutbound = "outbound"
	directionInbound  = "inbound"
)

var (
	translateDirection string
	translateSource    string
)

var translateCmd = &cobra.Command{
	Use:   "translate [file]",
	Short: "Translate one message between the bot and channel schemas",
	Long: `Reads a JSON document from file or stdin and prints its translation.

outbound: a bot message becomes the channel messages that would be queued.
inbound:  an aggregator event becomes bot messages, or the acknowledged
          message ids for delivery events.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := cmd.InOrStdin()
		if len(args) == 1 {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer file.Close()
			input = file
		}

		return runTranslate(input, cmd.OutOrStdout(), translateDirection, translateSource)
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringVarP(&translateDirection, "direction", "d", directionOutbound, "outbound (bot to channel) or inbound (channel to bot)")
	translateCmd.Flags().StringVar(&translateSource, "source", config.DefaultSource, "metadata source stamped on inbound messages")
}

type acknowledgedOutput struct {
	Acknowledged []string `json:"acknowledged"`
}

func runTranslate(in io.Reader, out io.Writer, direction string, source string) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	t := translator.New(source)

	var result any
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case directionOutbound:
		msg, err := bot.Decode(data)
		if err != nil {
			return fmt.Errorf("decode bot message: %w", err)
		}
		messages, err := t.Outbound(msg)
		if err != nil {
			return err
		}
		result = messages
	case directionInbound:
		var ev channel.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode channel event: %w", err)
		}
		if ev.Trigger.IsDelivery() {
			result = acknowledgedOutput{Acknowledged: translator.DeliveredMessageIDs(ev)}
			break
		}
		messages, err := t.Inbound(ev)
		if err != nil {
			return err
		}
		result = messages
	default:
		return fmt.Errorf("unknown direction %q (want %s or %s)", direction, directionOutbound, directionInbound)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
