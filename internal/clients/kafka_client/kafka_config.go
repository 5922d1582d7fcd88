package kafka_client

import "os"

type KafkaConfig struct {
	Broker          string
	Topic           string
	AggregateTopic  string
	TransactionalID string
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func GetKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Broker:          getEnv("KAFKA_BROKER", "localhost:29092"),
		Topic:           getEnv("KAFKA_ANNOTATED_TOPIC", KAFKA_TOPIC_ANNOTATED_REVIEWS),
		AggregateTopic:  getEnv("KAFKA_AGGREGATE_TOPIC", KAFKA_TOPIC_REVIEW_AGGREGATES),
		TransactionalID: getEnv("KAFKA_TRANSACTIONAL_ID", "aspectflow-producer-1"),
	}
}
