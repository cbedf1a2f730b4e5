package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	brokers       []string
	eventsTopic   string
	requestsTopic string
	dispatchTopic string
	dialTimeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "recommend-cli",
	Short: "A CLI client to exercise the TicketBlitz recommendation service",
	Long: `A command-line interface for publishing test events and booking triggers to the
recommendation service topics, and for tailing the recommendation emails it dispatches.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&brokers, "brokers", []string{"localhost:9092"}, "Kafka broker addresses")
	flags.StringVar(&eventsTopic, "events-topic", "ticketblitz.events.created", "event-created topic")
	flags.StringVar(&requestsTopic, "requests-topic", "ticketblitz.recommendation.request", "recommendation-request topic")
	flags.StringVar(&dispatchTopic, "dispatch-topic", "ticketblitz.email.dispatch", "email-dispatch topic")
	flags.DurationVar(&dialTimeout, "dial-timeout", 10*time.Second, "Kafka dial timeout")
}
