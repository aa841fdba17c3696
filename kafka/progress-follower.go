package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/shlpu/TSAT/lib/progress"
	"github.com/shlpu/TSAT/lib/settings"
)

// Follows the progress events of training runs published to kafka and
// writes them to the log.
func main() {
	var kafkaURL string
	var topic string
	var groupID string
	flag.StringVar(&kafkaURL, "kafkaURL", "", "The URL for the kafka broker.")
	flag.StringVar(&topic, "kafkaTopic", "", "The progress topic. Empty uses TSAT_KAFKA_TOPIC or the default.")
	flag.StringVar(&groupID, "groupID", "tsat-follower", "The kafka consumer group.")
	flag.Parse()

	s, err := settings.FromEnv(settings.RPMSettings{})
	if err != nil {
		log.Fatalf("failed to read settings: %v", err)
	}
	if kafkaURL != "" {
		s.KafkaURL = kafkaURL
	}
	if topic != "" {
		s.KafkaTopic = topic
	}
	s = s.ComputeSettingsFields()
	if s.KafkaURL == "" {
		log.Fatalf("no kafka broker given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("following progress events on %s topic %s\n", s.KafkaURL, s.KafkaTopic)
	if err := progress.Follow(ctx, s, groupID, progress.LogSink{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("follower stopped: %v", err)
	}
	log.Println("progress follower shutting down")
}
