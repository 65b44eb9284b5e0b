package models

import "time"

// PredictionResult is the normalized outcome of a sentiment inference call.
// It is immutable after creation; the gateway builds one per response and
// hands ownership to whoever holds the freshest reference.
type PredictionResult struct {
	// Label is the sentiment category reported by the service
	// (service-defined; "UNKNOWN" when the response carried none).
	Label string `json:"label"`
	// Score is the confidence for Label, conventionally 0.0-1.0.
	Score float64 `json:"score"`
	// PerLabelScores maps each label to its score when the service
	// reports a full distribution. Nil when absent.
	PerLabelScores map[string]float64 `json:"per_label_scores,omitempty"`
	// ProcessingTime is the server-side inference time, when reported.
	ProcessingTime float64 `json:"processing_time_seconds,omitempty"`
	// SourceText is the text that produced this result, when echoed back.
	SourceText string `json:"source_text,omitempty"`
}

// LabelUnknown is the neutral default applied when a response carries no
// recognizable sentiment label.
const LabelUnknown = "UNKNOWN"

// ModelMetadata describes the remote model as reported by the service.
type ModelMetadata struct {
	Name        string  `json:"name"`
	Framework   string  `json:"framework"`
	Device      string  `json:"device"`
	Quantized   bool    `json:"quantized"`
	Version     string  `json:"version,omitempty"`
	LoadTime    float64 `json:"load_time,omitempty"`
	Parameters  int64   `json:"parameters,omitempty"`
	ModelSizeMB float64 `json:"model_size_mb,omitempty"`
}

// ServiceStatus is the remote service health snapshot.
type ServiceStatus struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Service     string `json:"service,omitempty"`
}

// Healthy reports whether the service considers itself able to serve.
func (s ServiceStatus) Healthy() bool {
	return s.Status == "healthy" || s.Status == "ok"
}

// HistoryEntry is one archived explicit prediction.
type HistoryEntry struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Result    PredictionResult `json:"result"`
	Timestamp time.Time        `json:"timestamp"`
}

// Stats is a point-in-time snapshot of the prediction statistics window.
type Stats struct {
	// TotalPredictions counts every recorded explicit prediction since
	// the aggregator was created. Never decremented.
	TotalPredictions uint64
	// WindowSize is the number of latency samples currently held.
	WindowSize int
	// AverageLatency is the arithmetic mean of the current window;
	// zero when the window is empty (check WindowSize).
	AverageLatency time.Duration
}
