package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	config "github.com/NordCoder/Authgate/internal/config/authgate"
	"github.com/NordCoder/Authgate/internal/obs"
	"github.com/NordCoder/Authgate/internal/repository/kafka"

	"go.uber.org/zap"
)

// kafka-init creates the user events topic before the service starts, so
// the first publish does not race topic auto-creation.
func main() {
	configPath := flag.String("config", os.Getenv("AUTHGATE_CONFIG"), "path to YAML config")
	replicas := flag.Int("replication-factor", 1, "topic replication factor")
	wait := flag.Duration("wait", 30*time.Second, "how long to wait for the topic to become visible")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *wait+30*time.Second)
	defer cancel()

	kc := cfg.Events.Kafka
	if err := kafka.EnsureTopic(ctx, kc.Brokers, kafka.TopicSpec{
		Name:              kc.Topic,
		NumPartitions:     kc.Partitions,
		ReplicationFactor: *replicas,
		MaxWait:           *wait,
	}, logger); err != nil {
		logger.Fatal("ensure topic", zap.String("topic", kc.Topic), zap.Error(err))
	}
	logger.Info("kafka-init ok", zap.String("topic", kc.Topic))
}
