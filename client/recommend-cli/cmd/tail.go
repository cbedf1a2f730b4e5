package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
)

var tailGroup string

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print recommendation emails from the email-dispatch topic until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     tailGroup,
			Topic:       dispatchTopic,
			StartOffset: kafka.LastOffset,
			Dialer:      &kafka.Dialer{Timeout: dialTimeout},
		})
		defer r.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		for {
			msg, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			fmt.Fprintln(out, formatDispatch(msg))
			if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				return err
			}
		}
	},
}

func formatDispatch(msg kafka.Message) string {
	var m emailDispatch
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return fmt.Sprintf("[offset %d] undecodable message: %s", msg.Offset, err)
	}
	return fmt.Sprintf("[offset %d] To: %s\nSubject: %s\n\n%s\n", msg.Offset, m.RecipientEmail, m.Subject, m.Body)
}

func init() {
	tailCmd.Flags().StringVar(&tailGroup, "group", "recommend-cli-tail", "consumer group for the tail reader")
	rootCmd.AddCommand(tailCmd)
}
