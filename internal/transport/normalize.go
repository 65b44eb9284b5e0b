package transport

import (
	"github.com/tidwall/gjson"

	"github.com/T10nnyy/sentiment-AI/internal/models"
)

// The remote service has historically emitted inconsistent response shapes
// across deployments (flat vs nested label fields, "score" vs "confidence").
// Every field below is looked up through its known aliases and falls back
// to a documented neutral default, so a partially malformed payload
// degrades to LabelUnknown/0 instead of failing the call.

var (
	labelAliases = []string{"label", "sentiment", "prediction.label"}
	scoreAliases = []string{"score", "confidence", "prediction.score"}
	timeAliases  = []string{"processing_time", "processing_time_seconds", "processingTime"}
)

// normalizeResult maps one result object into a PredictionResult.
func normalizeResult(v gjson.Result) models.PredictionResult {
	result := models.PredictionResult{
		Label: models.LabelUnknown,
	}
	if label := firstString(v, labelAliases); label != "" {
		result.Label = label
	}
	result.Score = firstFloat(v, scoreAliases)
	result.ProcessingTime = firstFloat(v, timeAliases)
	result.SourceText = v.Get("text").String()

	if scores := v.Get("scores"); scores.IsObject() {
		perLabel := make(map[string]float64)
		scores.ForEach(func(key, value gjson.Result) bool {
			perLabel[key.String()] = value.Float()
			return true
		})
		if len(perLabel) > 0 {
			result.PerLabelScores = perLabel
		}
	}
	return result
}

// normalizeResultBytes is normalizeResult over a raw response body.
func normalizeResultBytes(body []byte) models.PredictionResult {
	return normalizeResult(gjson.ParseBytes(body))
}

// normalizeModelInfo maps a metadata object into ModelMetadata.
func normalizeModelInfo(v gjson.Result) models.ModelMetadata {
	return models.ModelMetadata{
		Name:        v.Get("name").String(),
		Framework:   v.Get("framework").String(),
		Device:      v.Get("device").String(),
		Quantized:   v.Get("quantized").Bool(),
		Version:     v.Get("version").String(),
		LoadTime:    firstFloat(v, []string{"load_time", "loadTime"}),
		Parameters:  v.Get("parameters").Int(),
		ModelSizeMB: firstFloat(v, []string{"model_size_mb", "modelSizeMb"}),
	}
}

// normalizeStatus maps a health payload into ServiceStatus.
func normalizeStatus(v gjson.Result) models.ServiceStatus {
	status := v.Get("status").String()
	if status == "" {
		status = "unknown"
	}
	loaded := v.Get("model_loaded")
	if !loaded.Exists() {
		loaded = v.Get("modelLoaded")
	}
	return models.ServiceStatus{
		Status:      status,
		ModelLoaded: loaded.Bool(),
		Service:     v.Get("service").String(),
	}
}

func firstString(v gjson.Result, paths []string) string {
	for _, path := range paths {
		if r := v.Get(path); r.Exists() && r.String() != "" {
			return r.String()
		}
	}
	return ""
}

func firstFloat(v gjson.Result, paths []string) float64 {
	for _, path := range paths {
		if r := v.Get(path); r.Exists() {
			return r.Float()
		}
	}
	return 0
}
