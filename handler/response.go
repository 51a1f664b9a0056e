package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"club-site/internal/usecase"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	msgInvalidBody      = "Invalid request body"
	msgUnauthorized     = "Unauthorized"
)

var validationMessages = map[string]string{
	usecase.ReasonMissingField:    "All fields are required",
	usecase.ReasonInvalidEmail:    "Invalid email format",
	usecase.ReasonMissingPassword: "Password is required",
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":   "*",
		"Access-Control-Allow-Methods":  "GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers":  "Content-Type, Authorization",
		"Access-Control-Expose-Headers": "Content-Length",
		"Access-Control-Max-Age":        "600",
	}
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response", "err", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// errorToResponse maps use case errors onto HTTP responses. internalMsg is
// returned for storage and unexpected failures so no wrapped detail leaks.
func errorToResponse(ctx context.Context, logger *slog.Logger, err error, internalMsg string) events.APIGatewayProxyResponse {
	ue, ok := usecase.AsError(err)
	if !ok {
		logger.ErrorContext(ctx, "unexpected error", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: internalMsg})
	}

	switch ue.Code {
	case usecase.ErrorValidation:
		logger.InfoContext(ctx, "request rejected", "reason", ue.Reason)
		msg, found := validationMessages[ue.Reason]
		if !found {
			msg = msgInvalidBody
		}
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: msg})
	case usecase.ErrorUnauthorized:
		logger.WarnContext(ctx, "access denied", "reason", ue.Reason)
		if ue.Reason == usecase.ReasonInvalidCredentials {
			return jsonResponse(http.StatusUnauthorized, errorResponse{Error: "Invalid credentials"})
		}
		return jsonResponse(http.StatusUnauthorized, errorResponse{Error: msgUnauthorized})
	default:
		logger.ErrorContext(ctx, "request failed", "code", ue.Code, "reason", ue.Reason, "err", ue.Err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: internalMsg})
	}
}

func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return err
		}
		body = string(raw)
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("empty body")
	}
	return json.Unmarshal([]byte(body), v)
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func correlationID(headers map[string]string) string {
	if id := strings.TrimSpace(headerValue(headers, headerCorrelationID)); id != "" {
		return id
	}
	return uuid.NewString()
}

func bearerToken(headers map[string]string) string {
	v := strings.TrimSpace(headerValue(headers, "Authorization"))
	const prefix = "bearer "
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return strings.TrimSpace(v[len(prefix):])
	}
	return ""
}
