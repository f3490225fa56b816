package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"saasywrap/internal/services"
)

const (
	// PathGenerateRequirements turns the initial description (and dataset) into requirements.
	PathGenerateRequirements = "/api/generate-requirements"
	// PathChatRequirements is the requirements screen chat endpoint.
	PathChatRequirements = "/api/chat/requirements"
)

// GenerateRequirementsRequest carries the upload coordinator input.
type GenerateRequirementsRequest struct {
	Requirements string
	// DatasetPath, when set, switches the request to a multipart upload.
	DatasetPath string
}

// GenerateRequirementsResponse is the backend answer to the initial upload.
type GenerateRequirementsResponse struct {
	Requirements []json.RawMessage `json:"requirements"`
	Response     string            `json:"response"`
	DatasetPath  string            `json:"datasetPath"`
}

// GenerateRequirements posts the free-text description, uploading the dataset
// as a multipart form when one is supplied.
func (c *Client) GenerateRequirements(ctx context.Context, in GenerateRequirementsRequest) (GenerateRequirementsResponse, error) {
	var out GenerateRequirementsResponse
	description := strings.TrimSpace(in.Requirements)
	if description == "" {
		return out, services.Wrap(services.ErrValidation, "backend", "generate-requirements", "requirements description required", nil)
	}

	if strings.TrimSpace(in.DatasetPath) == "" {
		err := c.PostJSON(ctx, PathGenerateRequirements, map[string]string{"requirements": description}, &out)
		return out, err
	}

	body, contentType, err := buildDatasetForm(description, in.DatasetPath)
	if err != nil {
		return out, services.Wrap(services.ErrValidation, "backend", "generate-requirements", "prepare dataset upload", err)
	}
	err = c.do(ctx, request{
		op:          "generate-requirements",
		path:        PathGenerateRequirements,
		contentType: contentType,
		body:        body,
	}, &out)
	return out, err
}

func buildDatasetForm(description, datasetPath string) ([]byte, string, error) {
	file, err := os.Open(datasetPath)
	if err != nil {
		return nil, "", fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("requirements", description); err != nil {
		return nil, "", fmt.Errorf("write requirements field: %w", err)
	}
	part, err := writer.CreateFormFile("dataset", filepath.Base(datasetPath))
	if err != nil {
		return nil, "", fmt.Errorf("create dataset part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy dataset: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finish form: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// GenerateOperationsResponse holds the list produced by a generate endpoint.
type GenerateOperationsResponse struct {
	Items    []json.RawMessage
	Response string
}

// GenerateOperations posts the current requirements to a generate endpoint and
// extracts the list stored under listField (blueprint or plans).
func (c *Client) GenerateOperations(ctx context.Context, path, listField string, requirements any) (GenerateOperationsResponse, error) {
	var out GenerateOperationsResponse
	var raw map[string]json.RawMessage
	if err := c.PostJSON(ctx, path, map[string]any{"requirements": requirements}, &raw); err != nil {
		return out, err
	}
	if text, ok := raw["response"]; ok {
		_ = json.Unmarshal(text, &out.Response)
	}
	list, ok := raw[listField]
	if !ok || isNull(list) {
		return out, nil
	}
	if err := json.Unmarshal(list, &out.Items); err != nil {
		return out, services.Wrap(services.ErrMalformed, "backend", operationName(path), "decode "+listField, err)
	}
	return out, nil
}

// ExecuteResult is the outcome reported by an execute endpoint.
type ExecuteResult struct {
	Status       string          `json:"status"`
	Preview      string          `json:"preview"`
	PreviewState json.RawMessage `json:"previewState"`
	Message      string          `json:"message"`
}

// HasPreviewState reports whether the backend returned a replacement preview state.
func (r ExecuteResult) HasPreviewState() bool {
	return len(r.PreviewState) > 0 && !isNull(r.PreviewState)
}

// Execute asks the backend to run one operation, sending the current preview
// state under previewState and the operation id under idField.
func (c *Client) Execute(ctx context.Context, path, idField, id string, previewState json.RawMessage) (ExecuteResult, error) {
	var out ExecuteResult
	if strings.TrimSpace(id) == "" {
		return out, services.Wrap(services.ErrValidation, "backend", operationName(path), "operation id required", nil)
	}
	state := previewState
	if len(state) == 0 || isNull(state) {
		state = json.RawMessage(`{}`)
	}
	payload := map[string]any{
		idField:        id,
		"previewState": state,
	}
	err := c.PostJSON(ctx, path, payload, &out)
	return out, err
}

// Ping checks that the backend answers HTTP at all. Any response counts as
// reachable; only transport failures are reported.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "backend", "ping", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "backend", "ping", "backend unreachable", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
	return nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
