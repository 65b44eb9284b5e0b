// Package transport contains the wire-protocol clients for the remote
// sentiment inference service. Each client performs exactly one network
// call per invocation; retry and fallback policy belongs to the gateway.
package transport

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/T10nnyy/sentiment-AI/internal/models"
	"github.com/T10nnyy/sentiment-AI/internal/utils"
)

// Client is the operation set every transport exposes.
type Client interface {
	Predict(ctx context.Context, text string) (models.PredictionResult, error)
	PredictBatch(ctx context.Context, texts []string) ([]models.PredictionResult, error)
	ModelInfo(ctx context.Context) (models.ModelMetadata, error)
	Health(ctx context.Context) (models.ServiceStatus, error)
}

// classifySendError maps a failed http.Client.Do into the uniform taxonomy:
// deadline expiry becomes a timeout, everything else a network failure.
func classifySendError(op string, ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return utils.NewPredictionError(utils.KindTimeout, op, "request deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return utils.NewPredictionError(utils.KindTimeout, op, "request timed out", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return utils.NewPredictionError(utils.KindTimeout, op, "request timed out", err)
	}
	return utils.NewPredictionError(utils.KindNetwork, op, "request could not be completed", err)
}
