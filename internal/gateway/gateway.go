// Package gateway abstracts over the wire transports: it routes calls to
// the selected transport, retries once against the fallback route on
// endpoint errors, validates batch limits, and surfaces every failure as
// a PredictionError kind.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/T10nnyy/sentiment-AI/internal/metrics"
	"github.com/T10nnyy/sentiment-AI/internal/models"
	"github.com/T10nnyy/sentiment-AI/internal/transport"
	"github.com/T10nnyy/sentiment-AI/internal/utils"
)

// Mode selects the active transport.
type Mode string

const (
	// ModeREST routes calls through the JSON REST endpoints.
	ModeREST Mode = "rest"
	// ModeGraphQL routes calls through the query-language endpoint.
	ModeGraphQL Mode = "graphql"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "rest":
		return ModeREST, nil
	case "graphql", "gql":
		return ModeGraphQL, nil
	default:
		return "", fmt.Errorf("unknown transport mode %q", value)
	}
}

// DefaultBatchCap bounds batch requests when no cap is configured.
const DefaultBatchCap = 100

// FileAnalyzer is the upload operation only the REST protocol offers.
type FileAnalyzer interface {
	AnalyzeFile(ctx context.Context, filename string, file io.Reader) ([]models.PredictionResult, error)
}

// routePair holds the prefixed and unprefixed instance of one transport.
// Some deployments expose only one form, so endpoint errors on the
// primary earn a single retry against the fallback.
type routePair struct {
	primary  transport.Client
	fallback transport.Client
}

// Options configures a Gateway.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	BatchCap int
	Mode     Mode
	Logger   *slog.Logger
}

// Gateway is the prediction entry point for both the explicit and the
// live path. Safe for concurrent use.
type Gateway struct {
	logger   *slog.Logger
	rest     routePair
	graphql  routePair
	file     FileAnalyzer
	batchCap int

	mu   sync.RWMutex
	mode Mode
}

// New constructs a Gateway with real transports for opts.BaseURL.
func New(opts Options) (*Gateway, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	restPrimary := transport.NewRESTClient(opts.BaseURL, "/api", opts.Timeout)
	restFallback := transport.NewRESTClient(opts.BaseURL, "", opts.Timeout)
	return newGateway(opts,
		routePair{primary: restPrimary, fallback: restFallback},
		routePair{
			primary:  transport.NewGraphQLClient(opts.BaseURL, "", opts.Timeout),
			fallback: transport.NewGraphQLClient(opts.BaseURL, "/api", opts.Timeout),
		},
		restPrimary,
	), nil
}

// NewWithClients wires explicit transports (used by tests).
func NewWithClients(opts Options, restPrimary, restFallback, gqlPrimary, gqlFallback transport.Client, file FileAnalyzer) *Gateway {
	return newGateway(opts,
		routePair{primary: restPrimary, fallback: restFallback},
		routePair{primary: gqlPrimary, fallback: gqlFallback},
		file,
	)
}

func newGateway(opts Options, rest, graphql routePair, file FileAnalyzer) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeREST
	}
	batchCap := opts.BatchCap
	if batchCap <= 0 {
		batchCap = DefaultBatchCap
	}
	return &Gateway{
		logger:   logger,
		rest:     rest,
		graphql:  graphql,
		file:     file,
		batchCap: batchCap,
		mode:     mode,
	}
}

// Mode returns the currently selected transport mode.
func (g *Gateway) Mode() Mode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// SetMode switches the transport used by subsequent calls. Calls already
// dispatched keep the pair they captured.
func (g *Gateway) SetMode(mode Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if mode == ModeREST || mode == ModeGraphQL {
		g.mode = mode
	}
}

// BatchCap reports the enforced batch size limit.
func (g *Gateway) BatchCap() int {
	return g.batchCap
}

// Predict returns the sentiment for a single text.
func (g *Gateway) Predict(ctx context.Context, text string) (models.PredictionResult, error) {
	const op = "gateway.Predict"
	if strings.TrimSpace(text) == "" {
		return models.PredictionResult{}, utils.NewPredictionError(utils.KindValidation, op, "text must not be empty", nil)
	}

	mode, pair := g.currentPair()
	start := time.Now()
	result, err := pair.primary.Predict(ctx, text)
	if retryOnFallback(err) {
		g.logFallback(op, err)
		result, err = pair.fallback.Predict(ctx, text)
	}
	g.observe(mode, start, err)
	if err != nil {
		return models.PredictionResult{}, err
	}
	return result, nil
}

// PredictBatch returns sentiments for texts, order-preserving. Requests
// above the batch cap fail fast without touching the network.
func (g *Gateway) PredictBatch(ctx context.Context, texts []string) ([]models.PredictionResult, error) {
	const op = "gateway.PredictBatch"
	if len(texts) == 0 {
		return nil, utils.NewPredictionError(utils.KindValidation, op, "texts must not be empty", nil)
	}
	if len(texts) > g.batchCap {
		msg := fmt.Sprintf("batch of %d exceeds cap of %d", len(texts), g.batchCap)
		return nil, utils.NewPredictionError(utils.KindValidation, op, msg, nil)
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, utils.NewPredictionError(utils.KindValidation, op, "texts must not contain empty entries", nil)
		}
	}

	mode, pair := g.currentPair()
	start := time.Now()
	results, err := pair.primary.PredictBatch(ctx, texts)
	if retryOnFallback(err) {
		g.logFallback(op, err)
		results, err = pair.fallback.PredictBatch(ctx, texts)
	}
	g.observe(mode, start, err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ModelInfo fetches metadata about the remote model.
func (g *Gateway) ModelInfo(ctx context.Context) (models.ModelMetadata, error) {
	const op = "gateway.ModelInfo"
	_, pair := g.currentPair()
	info, err := pair.primary.ModelInfo(ctx)
	if retryOnFallback(err) {
		g.logFallback(op, err)
		info, err = pair.fallback.ModelInfo(ctx)
	}
	if err != nil {
		return models.ModelMetadata{}, err
	}
	return info, nil
}

// Health probes the remote service.
func (g *Gateway) Health(ctx context.Context) (models.ServiceStatus, error) {
	const op = "gateway.Health"
	_, pair := g.currentPair()
	status, err := pair.primary.Health(ctx)
	if retryOnFallback(err) {
		g.logFallback(op, err)
		status, err = pair.fallback.Health(ctx)
	}
	if err != nil {
		return models.ServiceStatus{}, err
	}
	return status, nil
}

// AnalyzeFile uploads a CSV/TXT file for batch analysis. The upload is a
// REST-only operation and ignores the selected mode, but shares the same
// error mapping as every other call.
func (g *Gateway) AnalyzeFile(ctx context.Context, filename string, file io.Reader) ([]models.PredictionResult, error) {
	const op = "gateway.AnalyzeFile"
	if g.file == nil {
		return nil, utils.NewPredictionError(utils.KindValidation, op, "file analysis not configured", nil)
	}
	if filename == "" {
		return nil, utils.NewPredictionError(utils.KindValidation, op, "filename must not be empty", nil)
	}
	return g.file.AnalyzeFile(ctx, filename, file)
}

func (g *Gateway) currentPair() (Mode, routePair) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.mode == ModeGraphQL {
		return g.mode, g.graphql
	}
	return g.mode, g.rest
}

func (g *Gateway) observe(mode Mode, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObservePrediction(string(mode), time.Since(start), outcome)
}

func (g *Gateway) logFallback(op string, err error) {
	metrics.ObserveFallback()
	g.logger.Debug("primary route failed, retrying fallback",
		slog.String("op", op), slog.Any("error", err))
}

// retryOnFallback limits the one-shot fallback to endpoint errors: a
// network or timeout failure would hit the fallback route just as hard,
// and protocol errors come from a reachable, answering endpoint.
func retryOnFallback(err error) bool {
	return utils.KindOf(err) == utils.KindTransport
}
