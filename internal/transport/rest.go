package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/T10nnyy/sentiment-AI/internal/models"
	"github.com/T10nnyy/sentiment-AI/internal/utils"
)

// RESTClient speaks the JSON REST protocol of the inference service. The
// route prefix is a constructor parameter because deployments expose both
// a prefixed ("/api") and an unprefixed form of the same endpoints; the
// gateway holds one instance per form.
type RESTClient struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
}

// NewRESTClient constructs a REST transport for baseURL with the given
// route prefix ("" or "/api") and per-request timeout.
func NewRESTClient(baseURL, prefix string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     normalizePrefix(prefix),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Predict requests sentiment for a single text.
func (c *RESTClient) Predict(ctx context.Context, text string) (models.PredictionResult, error) {
	const op = "rest.Predict"
	body, err := c.do(ctx, op, http.MethodPost, "/predict", map[string]any{"text": text})
	if err != nil {
		return models.PredictionResult{}, err
	}
	result := normalizeResultBytes(body)
	if result.SourceText == "" {
		result.SourceText = text
	}
	return result, nil
}

// PredictBatch requests sentiment for texts, order-preserving and
// one-to-one with the input.
func (c *RESTClient) PredictBatch(ctx context.Context, texts []string) ([]models.PredictionResult, error) {
	const op = "rest.PredictBatch"
	body, err := c.do(ctx, op, http.MethodPost, "/predict/batch", map[string]any{"texts": texts})
	if err != nil {
		return nil, err
	}
	return alignBatch(op, gjson.GetBytes(body, "results"), texts)
}

// ModelInfo fetches model and service metadata.
func (c *RESTClient) ModelInfo(ctx context.Context) (models.ModelMetadata, error) {
	const op = "rest.ModelInfo"
	body, err := c.do(ctx, op, http.MethodGet, "/model/info", nil)
	if err != nil {
		return models.ModelMetadata{}, err
	}
	return normalizeModelInfo(gjson.ParseBytes(body)), nil
}

// Health probes the service health endpoint.
func (c *RESTClient) Health(ctx context.Context) (models.ServiceStatus, error) {
	const op = "rest.Health"
	body, err := c.do(ctx, op, http.MethodGet, "/health", nil)
	if err != nil {
		return models.ServiceStatus{}, err
	}
	return normalizeStatus(gjson.ParseBytes(body)), nil
}

// AnalyzeFile uploads a CSV/TXT file for batch analysis and returns the
// per-line results. REST only; there is no query-language equivalent.
func (c *RESTClient) AnalyzeFile(ctx context.Context, filename string, file io.Reader) ([]models.PredictionResult, error) {
	const op = "rest.AnalyzeFile"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, utils.NewPredictionError(utils.KindNetwork, op, "build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, utils.NewPredictionError(utils.KindNetwork, op, "read upload", err)
	}
	if err := mw.Close(); err != nil {
		return nil, utils.NewPredictionError(utils.KindNetwork, op, "finalize multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/analyze/file"), &buf)
	if err != nil {
		return nil, utils.NewPredictionError(utils.KindNetwork, op, "build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.send(ctx, op, req)
	if err != nil {
		return nil, err
	}
	results := gjson.GetBytes(body, "results")
	if !results.IsArray() {
		return nil, utils.NewPredictionError(utils.KindTransport, op, "response missing results array", nil)
	}
	out := make([]models.PredictionResult, 0, len(results.Array()))
	for _, item := range results.Array() {
		out = append(out, normalizeResult(item))
	}
	return out, nil
}

func (c *RESTClient) do(ctx context.Context, op, method, route string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, utils.NewPredictionError(utils.KindValidation, op, "marshal payload", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(route), reqBody)
	if err != nil {
		return nil, utils.NewPredictionError(utils.KindNetwork, op, "build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(ctx, op, req)
}

func (c *RESTClient) send(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifySendError(op, ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewPredictionError(utils.KindTransport, op, "read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("service returned %s", resp.Status)
		return nil, utils.NewPredictionError(utils.KindTransport, op, msg, nil)
	}
	if !gjson.ValidBytes(body) {
		return nil, utils.NewPredictionError(utils.KindTransport, op, "malformed response body", nil)
	}
	return body, nil
}

func (c *RESTClient) endpoint(route string) string {
	return c.baseURL + c.prefix + route
}

// alignBatch converts a results array, enforcing the one-to-one input
// alignment the protocol promises.
func alignBatch(op string, results gjson.Result, texts []string) ([]models.PredictionResult, error) {
	if !results.IsArray() {
		return nil, utils.NewPredictionError(utils.KindTransport, op, "response missing results array", nil)
	}
	items := results.Array()
	if len(items) != len(texts) {
		msg := fmt.Sprintf("response carries %d results for %d inputs", len(items), len(texts))
		return nil, utils.NewPredictionError(utils.KindTransport, op, msg, nil)
	}
	out := make([]models.PredictionResult, 0, len(items))
	for i, item := range items {
		result := normalizeResult(item)
		if result.SourceText == "" {
			result.SourceText = texts[i]
		}
		out = append(out, result)
	}
	return out, nil
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return "/" + strings.Trim(prefix, "/")
}
