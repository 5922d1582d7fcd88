package models

import "time"

// Sentiment is one of the three review buckets. The numeric values are the
// classifier's class indices.
type Sentiment int

const (
	Negative Sentiment = iota
	Neutral
	Positive
)

const NumSentiments = 3

var sentimentLabels = [NumSentiments]string{"Negative", "Neutral", "Positive"}

func (s Sentiment) String() string {
	if s < 0 || int(s) >= NumSentiments {
		return "Unknown"
	}
	return sentimentLabels[s]
}

// SentimentLabels returns the bucket labels in class-index order.
func SentimentLabels() []string {
	return sentimentLabels[:]
}

// ParseSentiment maps a bucket label back to its class.
func ParseSentiment(label string) (Sentiment, bool) {
	for i, l := range sentimentLabels {
		if l == label {
			return Sentiment(i), true
		}
	}
	return 0, false
}

type ReviewRecord struct {
	ID              string     `json:"id"`
	RatingStars     int        `json:"rating_stars"`
	RawText         string     `json:"raw_text"`
	RawTitle        string     `json:"raw_title"`
	ReviewDate      *time.Time `json:"review_date,omitempty"`
	PrimaryCategory string     `json:"primary_category"`
	ProductName     string     `json:"product_name"`
}

type DerivedReview struct {
	Record               ReviewRecord `json:"record"`
	TrainingSentiment    Sentiment    `json:"training_sentiment"`
	CleanedText          string       `json:"cleaned_text"`
	TextForModel         string       `json:"text_for_model"`
	SupportiveText       string       `json:"supportive_text"`
	CriticalText         string       `json:"critical_text"`
	Keyphrases           []string     `json:"keyphrases"`
	NormalizedKeyphrases []string     `json:"normalized_keyphrases"`
	AspectLabels         []string     `json:"aspect_labels"`
	ModelSentimentLabel  string       `json:"model_sentiment_label"`
}

// AnnotatedRow is one (review, aspect) fact.
type AnnotatedRow struct {
	ID                  string     `json:"id" dynamodbav:"id"`
	ReviewDate          *time.Time `json:"review_date,omitempty" dynamodbav:"review_date,omitempty"`
	PrimaryCategory     string     `json:"primary_category" dynamodbav:"primary_category"`
	ProductName         string     `json:"product_name" dynamodbav:"product_name"`
	AspectLabel         string     `json:"aspect_label" dynamodbav:"aspect_label"`
	ModelSentimentLabel string     `json:"model_sentiment_label" dynamodbav:"model_sentiment_label"`
}

type AggregateRow struct {
	EntityKey string `json:"entity_key" dynamodbav:"entity_key"`
	Negative  int    `json:"negative" dynamodbav:"negative"`
	Neutral   int    `json:"neutral" dynamodbav:"neutral"`
	Positive  int    `json:"positive" dynamodbav:"positive"`
	PosNeg    string `json:"pos_neg_percentage" dynamodbav:"pos_neg_percentage"`
	PosNeu    string `json:"pos_neu_percentage" dynamodbav:"pos_neu_percentage"`
	NegNeu    string `json:"neg_neu_percentage" dynamodbav:"neg_neu_percentage"`
	PosAll    string `json:"pos_all_percentage" dynamodbav:"pos_all_percentage"`
	NegAll    string `json:"neg_all_percentage" dynamodbav:"neg_all_percentage"`
}

// Count returns the row's count for a bucket.
func (r AggregateRow) Count(s Sentiment) int {
	switch s {
	case Negative:
		return r.Negative
	case Neutral:
		return r.Neutral
	case Positive:
		return r.Positive
	}
	return 0
}

// Total is the number of facts behind the row.
func (r AggregateRow) Total() int {
	return r.Negative + r.Neutral + r.Positive
}
