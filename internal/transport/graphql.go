package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/T10nnyy/sentiment-AI/internal/models"
	"github.com/T10nnyy/sentiment-AI/internal/utils"
)

// GraphQL operations mirroring the service schema. Every call is a named
// operation with variables against the single /graphql endpoint.
const (
	gqlAnalyze = `mutation AnalyzeSentiment($text: String!) {
  analyzeSentiment(input: {text: $text}) {
    text
    sentiment
    confidence
    scores { positive negative }
  }
}`

	gqlAnalyzeBatch = `mutation AnalyzeBatchSentiment($texts: [String!]!) {
  analyzeBatchSentiment(input: {texts: $texts}) {
    text
    sentiment
    confidence
    scores { positive negative }
  }
}`

	gqlModelInfo = `query ModelInfo {
  modelInfo {
    name
    framework
    device
    loadTime
    quantized
    parameters
    modelSizeMb
  }
}`

	// The schema exposes no dedicated health field, so the probe asks for
	// the cheapest thing the endpoint can answer.
	gqlHealth = `query Health { __typename }`
)

// GraphQLClient speaks the query-language protocol of the inference
// service. Like the REST client, the route prefix is a constructor
// parameter so the gateway can pair a prefixed and an unprefixed route.
type GraphQLClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewGraphQLClient constructs a query-language transport for baseURL with
// the given route prefix and per-request timeout.
func NewGraphQLClient(baseURL, prefix string, timeout time.Duration) *GraphQLClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GraphQLClient{
		endpoint:   strings.TrimRight(baseURL, "/") + normalizePrefix(prefix) + "/graphql",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Predict requests sentiment for a single text.
func (c *GraphQLClient) Predict(ctx context.Context, text string) (models.PredictionResult, error) {
	const op = "graphql.Predict"
	data, err := c.query(ctx, op, gqlAnalyze, "AnalyzeSentiment", map[string]any{"text": text})
	if err != nil {
		return models.PredictionResult{}, err
	}
	result := normalizeResult(data.Get("analyzeSentiment"))
	if result.SourceText == "" {
		result.SourceText = text
	}
	return result, nil
}

// PredictBatch requests sentiment for texts, order-preserving and
// one-to-one with the input.
func (c *GraphQLClient) PredictBatch(ctx context.Context, texts []string) ([]models.PredictionResult, error) {
	const op = "graphql.PredictBatch"
	data, err := c.query(ctx, op, gqlAnalyzeBatch, "AnalyzeBatchSentiment", map[string]any{"texts": texts})
	if err != nil {
		return nil, err
	}
	return alignBatch(op, data.Get("analyzeBatchSentiment"), texts)
}

// ModelInfo fetches model metadata through the modelInfo query.
func (c *GraphQLClient) ModelInfo(ctx context.Context) (models.ModelMetadata, error) {
	const op = "graphql.ModelInfo"
	data, err := c.query(ctx, op, gqlModelInfo, "ModelInfo", nil)
	if err != nil {
		return models.ModelMetadata{}, err
	}
	return normalizeModelInfo(data.Get("modelInfo")), nil
}

// Health probes the endpoint with a minimal query.
func (c *GraphQLClient) Health(ctx context.Context) (models.ServiceStatus, error) {
	const op = "graphql.Health"
	if _, err := c.query(ctx, op, gqlHealth, "Health", nil); err != nil {
		return models.ServiceStatus{}, err
	}
	return models.ServiceStatus{Status: "healthy", ModelLoaded: true}, nil
}

// query posts one named operation and unwraps the response envelope. A
// populated errors array is a failure even when the HTTP status is 200.
func (c *GraphQLClient) query(ctx context.Context, op, query, operationName string, variables map[string]any) (gjson.Result, error) {
	payload := map[string]any{
		"query":         query,
		"operationName": operationName,
	}
	if variables != nil {
		payload["variables"] = variables
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, utils.NewPredictionError(utils.KindValidation, op, "marshal query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return gjson.Result{}, utils.NewPredictionError(utils.KindNetwork, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, classifySendError(op, ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, utils.NewPredictionError(utils.KindTransport, op, "read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("service returned %s", resp.Status)
		return gjson.Result{}, utils.NewPredictionError(utils.KindTransport, op, msg, nil)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, utils.NewPredictionError(utils.KindTransport, op, "malformed response body", nil)
	}

	envelope := gjson.ParseBytes(body)
	if errs := envelope.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		msg := errs.Array()[0].Get("message").String()
		if msg == "" {
			msg = "query failed"
		}
		return gjson.Result{}, utils.NewPredictionError(utils.KindProtocol, op, msg, nil)
	}
	return envelope.Get("data"), nil
}
