package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"club-site/internal/domain"
	"club-site/internal/usecase"
)

type SubmissionUseCase interface {
	Submit(ctx context.Context, in usecase.SubmitInput) (usecase.SubmitOutput, error)
	List(ctx context.Context) ([]domain.ContactSubmission, error)
}

type CatalogUseCase interface {
	Team(ctx context.Context) ([]domain.TeamMember, error)
	Projects(ctx context.Context) ([]domain.Project, error)
	PublishProjects(ctx context.Context) ([]domain.Project, error)
}

type AdminUseCase interface {
	Login(ctx context.Context, password string) (usecase.LoginOutput, error)
	Authorize(ctx context.Context, bearer string) error
}

// Handler routes API Gateway proxy events to the site's use cases.
type Handler struct {
	submissions SubmissionUseCase
	catalog     CatalogUseCase
	admin       AdminUseCase
	pathPrefix  string
}

type Option func(*Handler)

// WithPathPrefix strips a deployment prefix such as "/make-server-7cb901af"
// from incoming paths before routing.
func WithPathPrefix(prefix string) Option {
	return func(h *Handler) {
		h.pathPrefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	}
}

func NewHandler(s SubmissionUseCase, c CatalogUseCase, a AdminUseCase, opts ...Option) (*Handler, error) {
	if s == nil {
		return nil, errors.New("handler: submission use case must not be nil")
	}
	if c == nil {
		return nil, errors.New("handler: catalog use case must not be nil")
	}
	if a == nil {
		return nil, errors.New("handler: admin use case must not be nil")
	}
	h := &Handler{submissions: s, catalog: c, admin: a}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type contactResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId"`
}

type contactsResponse struct {
	Contacts []domain.ContactSubmission `json:"contacts"`
}

type teamResponse struct {
	Team []domain.TeamMember `json:"team"`
}

type projectsResponse struct {
	Success  bool             `json:"success,omitempty"`
	Message  string           `json:"message,omitempty"`
	Projects []domain.Project `json:"projects"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handle is the Lambda entry point. Failures are always encoded into the
// response; the returned error is reserved for the runtime and stays nil.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	corrID := correlationID(req.Headers)
	logger := slog.Default().With("correlation_id", corrID)
	path := h.routePath(req.Path)

	resp := h.dispatch(ctx, logger, req, path)

	headers := corsHeaders()
	for k, v := range resp.Headers {
		headers[k] = v
	}
	headers[headerCorrelationID] = corrID
	resp.Headers = headers

	logger.InfoContext(ctx, "request",
		"method", req.HTTPMethod,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (h *Handler) dispatch(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest, path string) events.APIGatewayProxyResponse {
	method := strings.ToUpper(req.HTTPMethod)
	if method == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	}

	switch method + " " + path {
	case "GET /health":
		return jsonResponse(http.StatusOK, healthResponse{Status: "ok"})
	case "POST /contact":
		return h.submitContact(ctx, logger, req)
	case "GET /contacts":
		return h.listContacts(ctx, logger, req)
	case "GET /team":
		return h.team(ctx, logger)
	case "GET /projects":
		return h.projects(ctx, logger)
	case "POST /projects":
		return h.publishProjects(ctx, logger, req)
	case "POST /admin/login":
		return h.login(ctx, logger, req)
	default:
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "Not found"})
	}
}

func (h *Handler) submitContact(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var in contactRequest
	if err := decodeBody(req, &in); err != nil {
		logger.WarnContext(ctx, "invalid contact body", "err", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
	}

	out, err := h.submissions.Submit(ctx, usecase.SubmitInput{Name: in.Name, Email: in.Email, Message: in.Message})
	if err != nil {
		return errorToResponse(ctx, logger, err, "Internal server error while processing contact form")
	}
	return jsonResponse(http.StatusOK, contactResponse{
		Success:      true,
		Message:      out.Message,
		SubmissionID: out.SubmissionID,
	})
}

func (h *Handler) listContacts(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if resp, ok := h.authorize(ctx, logger, req); !ok {
		return resp
	}
	subs, err := h.submissions.List(ctx)
	if err != nil {
		return errorToResponse(ctx, logger, err, "Internal server error while fetching contacts")
	}
	if subs == nil {
		subs = []domain.ContactSubmission{}
	}
	return jsonResponse(http.StatusOK, contactsResponse{Contacts: subs})
}

func (h *Handler) team(ctx context.Context, logger *slog.Logger) events.APIGatewayProxyResponse {
	team, err := h.catalog.Team(ctx)
	if err != nil {
		return errorToResponse(ctx, logger, err, "Internal server error while fetching team members")
	}
	return jsonResponse(http.StatusOK, teamResponse{Team: team})
}

func (h *Handler) projects(ctx context.Context, logger *slog.Logger) events.APIGatewayProxyResponse {
	projects, err := h.catalog.Projects(ctx)
	if err != nil {
		return errorToResponse(ctx, logger, err, "Internal server error while fetching projects")
	}
	return jsonResponse(http.StatusOK, projectsResponse{Projects: projects})
}

func (h *Handler) publishProjects(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if resp, ok := h.authorize(ctx, logger, req); !ok {
		return resp
	}
	projects, err := h.catalog.PublishProjects(ctx)
	if err != nil {
		return errorToResponse(ctx, logger, err, "Internal server error while storing projects")
	}
	return jsonResponse(http.StatusOK, projectsResponse{
		Success:  true,
		Message:  "Projects data stored successfully",
		Projects: projects,
	})
}

func (h *Handler) login(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var in loginRequest
	if err := decodeBody(req, &in); err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
	}
	out, err := h.admin.Login(ctx, in.Password)
	if err != nil {
		return errorToResponse(ctx, logger, err, "Internal server error while signing in")
	}
	return jsonResponse(http.StatusOK, loginResponse{
		Token:     out.Token,
		ExpiresAt: out.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) authorize(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, bool) {
	err := h.admin.Authorize(ctx, bearerToken(req.Headers))
	if err == nil {
		return events.APIGatewayProxyResponse{}, true
	}
	return errorToResponse(ctx, logger, err, "Internal server error while checking access"), false
}

func (h *Handler) routePath(p string) string {
	if h.pathPrefix != "" {
		p = strings.TrimPrefix(p, h.pathPrefix)
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		p = "/"
	}
	return p
}
