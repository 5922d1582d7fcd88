package kafka_client

import "time"

const (
	KAFKA_TOPIC_ANNOTATED_REVIEWS = "annotated-reviews" // exploded (review, aspect) facts
	KAFKA_TOPIC_REVIEW_AGGREGATES = "review-aggregates" // product and category sentiment tables
)

const (
	BATCH_SIZE    = 500
	FLUSH_TIMEOUT = 15 * time.Second
	MAX_RETRIES   = 3
	RETRY_DELAY   = 2 * time.Second
)
