package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"say-something/internal/domain"
	"say-something/internal/telemetry"
	"say-something/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type SuggestionService interface {
	List(ctx context.Context, channelID string) ([]domain.Suggestion, error)
	Submit(ctx context.Context, in usecase.SubmitInput) (domain.Suggestion, error)
	Complete(ctx context.Context, in usecase.CompleteInput) (domain.Suggestion, error)
}

type Handler struct {
	svc SuggestionService
}

type submitRequest struct {
	Phrase             string `json:"phrase"`
	TransactionReceipt string `json:"transactionReceipt"`
	TransactionObject  *struct {
		TransactionReceipt string `json:"transactionReceipt"`
	} `json:"transactionObject"`
}

func (r submitRequest) receipt() string {
	if r.TransactionReceipt != "" {
		return r.TransactionReceipt
	}
	if r.TransactionObject != nil {
		return r.TransactionObject.TransactionReceipt
	}
	return ""
}

type completeRequest struct {
	MessageID string `json:"messageId"`
	// IsRejected is sent by the panel and accepted, but rejection is not modelled.
	IsRejected bool `json:"isRejected"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(svc SuggestionService) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: suggestion service must not be nil")
	}
	return &Handler{svc: svc}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	ctx = telemetry.WithCorrelation(ctx, corrID)
	log := telemetry.Logger(ctx)
	start := time.Now()

	resp := h.route(ctx, req)
	resp.Headers = withCommonHeaders(resp.Headers, corrID)

	log.Info("request handled",
		"method", req.HTTPMethod,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (h *Handler) route(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	method := strings.ToUpper(req.HTTPMethod)
	if method == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	}

	path := strings.TrimRight(req.Path, "/")
	var allowed string
	switch path {
	case "/phrases":
		if method == http.MethodGet {
			return h.list(ctx, req)
		}
		allowed = http.MethodGet
	case "/phrase":
		if method == http.MethodPost {
			return h.submit(ctx, req)
		}
		allowed = http.MethodPost
	case "/completed":
		if method == http.MethodPut {
			return h.complete(ctx, req)
		}
		allowed = http.MethodPut
	default:
		return jsonResponse(http.StatusNotFound, errorResponse{Error: string(usecase.ErrorNotFound)})
	}
	resp := jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"})
	resp.Headers["Allow"] = allowed + ", " + http.MethodOptions
	return resp
}

func (h *Handler) list(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	out, err := h.svc.List(ctx, req.QueryStringParameters["channelId"])
	if err != nil {
		return errorFor(ctx, err)
	}
	return jsonResponse(http.StatusOK, out)
}

func (h *Handler) submit(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var body submitRequest
	if err := decodeBody(req, &body); err != nil {
		telemetry.Logger(ctx).Warn("invalid request body", "err", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)})
	}
	out, err := h.svc.Submit(ctx, usecase.SubmitInput{
		Authorization:      headerValue(req.Headers, "Authorization"),
		Phrase:             body.Phrase,
		TransactionReceipt: body.receipt(),
	})
	if err != nil {
		return errorFor(ctx, err)
	}
	return jsonResponse(http.StatusOK, out)
}

func (h *Handler) complete(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var body completeRequest
	if err := decodeBody(req, &body); err != nil {
		telemetry.Logger(ctx).Warn("invalid request body", "err", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)})
	}
	out, err := h.svc.Complete(ctx, usecase.CompleteInput{
		Authorization: headerValue(req.Headers, "Authorization"),
		MessageID:     body.MessageID,
	})
	if err != nil {
		return errorFor(ctx, err)
	}
	return jsonResponse(http.StatusOK, out)
}

func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return err
		}
		raw = decoded
	}
	return json.Unmarshal(raw, v)
}

func errorFor(ctx context.Context, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		telemetry.Logger(ctx).Error("unexpected error", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)})
	}
	status := statusFor(ucErr.Code)
	if status >= http.StatusInternalServerError {
		telemetry.Logger(ctx).Error("request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	} else {
		telemetry.Logger(ctx).Info("request rejected", "code", ucErr.Code, "reason", ucErr.Reason)
	}
	return jsonResponse(status, errorResponse{Error: string(ucErr.Code)})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorUnauthorized:
		return http.StatusUnauthorized
	case usecase.ErrorForbidden:
		return http.StatusForbidden
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func withCommonHeaders(h map[string]string, corrID string) map[string]string {
	if h == nil {
		h = make(map[string]string, 4)
	}
	h[correlationHeader] = corrID
	h["Access-Control-Allow-Origin"] = "*"
	h["Access-Control-Allow-Headers"] = "Authorization, Content-Type, X-Correlation-Id"
	h["Access-Control-Allow-Methods"] = "GET, POST, PUT, OPTIONS"
	return h
}

// headerValue looks a header up case-insensitively; API Gateway preserves the
// client's casing.
func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
