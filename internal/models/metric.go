package models

import "time"

// MetricSample is the sole trigger for alert evaluation, delivered by the
// ingestion collaborator.
type MetricSample struct {
	StationID   string    `json:"station_id"`
	StationName string    `json:"station_name"`
	MetricType  string    `json:"metric_type"`
	Value       float64   `json:"value"`
	Timestamp   time.Time `json:"timestamp"`
}
