package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
)

type eventFlags struct {
	id          int64
	title       string
	description string
	category    string
	location    string
	price       string
	date        string
	images      []string
}

type requestFlags struct {
	userID   int64
	eventID  int64
	email    string
	username string
}

var (
	evtFlags eventFlags
	reqFlags requestFlags
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish test messages to the inbound topics",
}

var publishEventCmd = &cobra.Command{
	Use:   "event",
	Short: "Publish an event-created message",
	RunE: func(cmd *cobra.Command, args []string) error {
		evt, err := evtFlags.message()
		if err != nil {
			return err
		}
		if err := publish(cmd, eventsTopic, strconv.FormatInt(evt.ID, 10), evt); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published event %d to %s\n", evt.ID, eventsTopic)
		return nil
	},
}

var publishRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Publish a recommendation-request (booking trigger) message",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := reqFlags.message()
		if err != nil {
			return err
		}
		if err := publish(cmd, requestsTopic, strconv.FormatInt(req.UserID, 10), req); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published booking of event %d by user %d to %s\n", req.EventID, req.UserID, requestsTopic)
		return nil
	},
}

func (f eventFlags) message() (eventCreated, error) {
	evt := eventCreated{
		ID:          f.id,
		Title:       f.title,
		Description: f.description,
		Category:    f.category,
		Location:    f.location,
		Price:       f.price,
		ImageURLs:   f.images,
	}
	if evt.ImageURLs == nil {
		evt.ImageURLs = []string{}
	}
	if f.date != "" {
		d, err := normalizeDate(f.date)
		if err != nil {
			return evt, err
		}
		evt.Date = d
	}
	return evt, validate.Struct(evt)
}

func (f requestFlags) message() (recommendationRequest, error) {
	req := recommendationRequest{
		UserID:    f.userID,
		EventID:   f.eventID,
		UserEmail: f.email,
		Username:  f.username,
	}
	return req, validate.Struct(req)
}

func newWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Transport:    &kafka.Transport{DialTimeout: dialTimeout},
	}
}

func publish(cmd *cobra.Command, topic, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w := newWriter(topic)
	defer w.Close()

	return w.WriteMessages(cmd.Context(), kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	})
}

func init() {
	ef := publishEventCmd.Flags()
	ef.Int64Var(&evtFlags.id, "id", 0, "event id")
	ef.StringVar(&evtFlags.title, "title", "", "event title")
	ef.StringVar(&evtFlags.description, "description", "", "event description")
	ef.StringVar(&evtFlags.category, "category", "", "event category")
	ef.StringVar(&evtFlags.location, "location", "", "event location")
	ef.StringVar(&evtFlags.price, "price", "", "event price, sent as given")
	ef.StringVar(&evtFlags.date, "date", "", "event date (ISO-8601)")
	ef.StringSliceVar(&evtFlags.images, "image", nil, "image URL, repeatable")
	_ = publishEventCmd.MarkFlagRequired("id")
	_ = publishEventCmd.MarkFlagRequired("title")

	rf := publishRequestCmd.Flags()
	rf.Int64Var(&reqFlags.userID, "user-id", 0, "booking user id")
	rf.Int64Var(&reqFlags.eventID, "event-id", 0, "booked event id")
	rf.StringVar(&reqFlags.email, "email", "", "user email")
	rf.StringVar(&reqFlags.username, "username", "", "user name")
	for _, name := range []string{"user-id", "event-id", "email", "username"} {
		_ = publishRequestCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(publishCmd)
	publishCmd.AddCommand(publishEventCmd)
	publishCmd.AddCommand(publishRequestCmd)
}
