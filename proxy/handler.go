package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gemini-proxy/config"
	"gemini-proxy/logger"
	"gemini-proxy/types"
)

// Handler handles HTTP proxy requests
type Handler struct {
	config     *config.Config
	obsLogger  *logger.ObservabilityLogger
	httpClient *http.Client
}

// NewHandler creates a new proxy handler. obsLogger may be nil; the event
// sink is optional and never affects request processing.
func NewHandler(cfg *config.Config, obsLogger *logger.ObservabilityLogger) *Handler {
	return &Handler{
		config:    cfg,
		obsLogger: obsLogger,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

// HandleChatCompletions handles incoming OpenAI-format chat completion
// requests, forwarding them to Gemini and translating the response back.
func (h *Handler) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "invalid_request_error", "Method not allowed")
		return
	}

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		requestsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid_request_error", "Failed to read request")
		return
	}
	defer r.Body.Close()

	var openaiReq types.OpenAIRequest
	if err := json.Unmarshal(body, &openaiReq); err != nil {
		requestsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid_request_error", "Invalid request format")
		return
	}

	requestID := generateRequestID()
	ctx := withRequestID(r.Context(), requestID)
	log := logger.FromContext(ctx, logger.NewConfigAdapter(h.config))

	model := openaiReq.Model
	if model == "" {
		model = h.config.DefaultModel
		log.Warn("Empty model in request, using default: %s", model)
	}

	log.Info("📨 Received chat completion request: model=%s, messages=%d, tools=%d",
		model, len(openaiReq.Messages), len(openaiReq.Tools))

	// Streaming is a non-goal: responses are translated single-shot only.
	if openaiReq.Stream {
		requestsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid_request_error", "Streaming is not supported")
		return
	}

	geminiReq, err := BuildGeminiRequest(ctx, openaiReq, h.config)
	if err != nil {
		translationErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		requestsTotal.WithLabelValues("translation_error").Inc()
		log.Error("Request transformation failed: %v", err)
		writeError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	if h.config.PrintGeminiRequests {
		if raw, err := json.MarshalIndent(geminiReq, "", "  "); err == nil {
			log.Debug("Outbound Gemini payload:\n%s", string(raw))
		}
	}

	// One event per outbound request, fire-and-forget.
	if h.obsLogger != nil {
		h.obsLogger.LogRequestEvent(requestID, model, geminiReq)
	}

	geminiResp, err := h.callGemini(ctx, model, geminiReq)
	if err != nil {
		translationErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		requestsTotal.WithLabelValues("upstream_error").Inc()
		log.Error("Upstream call failed: %v", err)
		writeError(w, http.StatusBadGateway, "api_error", err.Error())
		return
	}

	openaiResp, err := ConvertGeminiResponse(geminiResp, InterpretOptions{
		Model:             model,
		InputContents:     geminiReq.Contents,
		PullInnerThoughts: h.config.InnerThoughtsInArgs,
	})
	if err != nil {
		translationErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		requestsTotal.WithLabelValues("translation_error").Inc()
		log.Error("Response interpretation failed: %v", err)
		writeError(w, http.StatusBadGateway, "api_error", err.Error())
		return
	}

	requestsTotal.WithLabelValues("success").Inc()
	log.Info("✅ Translated response: %d choice(s), finish_reason=%s, tokens=%d",
		len(openaiResp.Choices), firstFinishReason(openaiResp), openaiResp.Usage.TotalTokens)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(openaiResp); err != nil {
		log.Error("Failed to write response: %v", err)
	}
}

// callGemini sends the generateContent request to the next healthy endpoint
// and decodes the response. Network and upstream-status failures surface as
// TransportError and feed the circuit breaker; a response body that does not
// match the expected shape is a protocol violation.
func (h *Handler) callGemini(ctx context.Context, model string, geminiReq *types.GeminiRequest) (*types.GeminiResponse, error) {
	endpoint := h.config.GetHealthyEndpoint()
	if endpoint == "" {
		return nil, &types.TransportError{Err: errors.New("no Gemini endpoints configured")}
	}

	payload, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling Gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", endpoint, model, h.config.GeminiAPIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &types.TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := h.httpClient.Do(httpReq)
	if err != nil {
		h.config.RecordEndpointFailure(endpoint)
		return nil, &types.TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		h.config.RecordEndpointFailure(endpoint)
		return nil, &types.TransportError{Err: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		h.config.RecordEndpointFailure(endpoint)
		return nil, &types.TransportError{
			Err: fmt.Errorf("Gemini returned status %d: %s", httpResp.StatusCode, truncate(string(respBody), 500)),
		}
	}

	var geminiResp types.GeminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		h.config.RecordEndpointFailure(endpoint)
		return nil, &types.ProtocolViolationError{
			Reason: fmt.Sprintf("malformed Gemini response body: %v", err),
		}
	}

	h.config.RecordEndpointSuccess(endpoint)
	return &geminiResp, nil
}

// errorBody is the OpenAI-style error envelope
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Message: message, Type: errType}})
}

func firstFinishReason(resp *types.OpenAIResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].FinishReason
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
