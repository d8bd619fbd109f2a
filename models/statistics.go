package models

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Statistics are running speaking totals of a debate. Every transcript adds
// to them; nothing is recomputed.
type Statistics struct {
	TotalDuration       int `bson:"totalDuration" json:"totalDuration"`
	AffirmativeDuration int `bson:"affirmativeDuration" json:"affirmativeDuration"`
	NegativeDuration    int `bson:"negativeDuration" json:"negativeDuration"`
	AffirmativeCount    int `bson:"affirmativeCount" json:"affirmativeCount"`
	NegativeCount       int `bson:"negativeCount" json:"negativeCount"`
}

// Apply adds one transcript of the given speaker and duration.
func (s *Statistics) Apply(speaker string, duration int) {
	if duration < 0 {
		duration = 0
	}
	s.TotalDuration += duration
	switch speaker {
	case "affirmative":
		s.AffirmativeDuration += duration
		s.AffirmativeCount++
	case "negative":
		s.NegativeDuration += duration
		s.NegativeCount++
	}
}

// StatisticsIncrement is the $inc document matching Apply.
func StatisticsIncrement(speaker string, duration int) bson.M {
	if duration < 0 {
		duration = 0
	}
	inc := bson.M{"statistics.totalDuration": duration}
	switch speaker {
	case "affirmative":
		inc["statistics.affirmativeDuration"] = duration
		inc["statistics.affirmativeCount"] = 1
	case "negative":
		inc["statistics.negativeDuration"] = duration
		inc["statistics.negativeCount"] = 1
	}
	return inc
}

// Share returns the affirmative and negative shares of speaking time in
// percent.
func (s Statistics) Share() (affirmative, negative float64) {
	total := s.AffirmativeDuration + s.NegativeDuration
	if total == 0 {
		return 0, 0
	}
	affirmative = float64(s.AffirmativeDuration) * 100 / float64(total)
	return affirmative, 100 - affirmative
}
