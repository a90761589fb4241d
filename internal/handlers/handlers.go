package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"devflow/internal/api"
	"devflow/internal/middleware"
	"devflow/internal/services"
	"devflow/internal/utils"
	"devflow/internal/validation"
	"devflow/internal/websocket"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server holds everything the HTTP handlers need.
type Server struct {
	Service        *services.Service
	Tokens         *middleware.TokenIssuer
	Metrics        *utils.MetricsCollector
	Hub            *websocket.Hub
	Logger         *zap.Logger
	CORS           *middleware.CORSConfig
	RequestTimeout time.Duration
}

func NewServer(
	service *services.Service,
	tokens *middleware.TokenIssuer,
	metrics *utils.MetricsCollector,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Service:        service,
		Tokens:         tokens,
		Metrics:        metrics,
		Hub:            hub,
		Logger:         logger,
		RequestTimeout: 10 * time.Second,
	}
}

// Router wires every route with logging, recovery, CORS and authentication.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(
		middleware.Logging(s.Logger, s.Metrics),
		middleware.Recover(s.Logger),
		middleware.Authenticate(s.Tokens),
	)

	r.HandleFunc("/health", s.HandleHealth()).Methods(http.MethodGet)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/auth/sign-up", s.HandleSignUp()).Methods(http.MethodPost)
	r.HandleFunc("/auth/sign-in", s.HandleSignIn()).Methods(http.MethodPost)

	r.HandleFunc("/questions", s.HandleListQuestions()).Methods(http.MethodGet)
	r.HandleFunc("/questions", s.HandleCreateQuestion()).Methods(http.MethodPost)
	r.HandleFunc("/questions/{id}", s.HandleGetQuestion()).Methods(http.MethodGet)
	r.HandleFunc("/questions/{id}", s.HandleEditQuestion()).Methods(http.MethodPatch)
	r.HandleFunc("/questions/{id}", s.HandleDeleteQuestion()).Methods(http.MethodDelete)
	r.HandleFunc("/questions/{id}/views", s.HandleIncrementViews()).Methods(http.MethodPost)
	r.HandleFunc("/questions/{id}/answers", s.HandleListAnswers()).Methods(http.MethodGet)
	r.HandleFunc("/questions/{id}/answers", s.HandleCreateAnswer()).Methods(http.MethodPost)
	r.HandleFunc("/answers/{id}", s.HandleDeleteAnswer()).Methods(http.MethodDelete)

	r.HandleFunc("/votes", s.HandleCastVote()).Methods(http.MethodPost)
	r.HandleFunc("/votes/status", s.HandleVoteStatus()).Methods(http.MethodGet)

	r.HandleFunc("/collections/toggle", s.HandleToggleSave()).Methods(http.MethodPost)
	r.HandleFunc("/collections/status", s.HandleSaveStatus()).Methods(http.MethodGet)
	r.HandleFunc("/collections", s.HandleListSaved()).Methods(http.MethodGet)

	r.HandleFunc("/tags", s.HandleListTags()).Methods(http.MethodGet)
	r.HandleFunc("/tags/{id}/questions", s.HandleTagQuestions()).Methods(http.MethodGet)

	r.HandleFunc("/users", s.HandleListUsers()).Methods(http.MethodGet)
	r.HandleFunc("/users/me", s.HandleUpdateUser()).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id}", s.HandleGetUser()).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/questions", s.HandleUserQuestions()).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/answers", s.HandleUserAnswers()).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/tags", s.HandleUserTopTags()).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/stats", s.HandleUserStats()).Methods(http.MethodGet)

	r.HandleFunc("/search", s.HandleGlobalSearch()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.HandleWebSocket()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, utils.NewAppError(utils.ErrNotFound, "route not found", nil))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(api.Response{Error: &api.ErrorBody{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"}})
	})

	return middleware.CORSMiddleware(s.CORS)(r)
}

// requestContext bounds a handler's work by the server's request timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.RequestTimeout)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return utils.NewAppError(utils.ErrInvalidInput, "request body is required", nil)
		}
		return utils.NewAppError(utils.ErrInvalidInput, "invalid JSON body", err)
	}
	return validation.ValidateStruct(dst)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return parseID("id", mux.Vars(r)["id"])
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, utils.NewValidationError(map[string][]string{field: {"must be a valid id"}})
	}
	return id, nil
}

// listParams is the query string every paginated listing accepts.
type listParams struct {
	Query    string `json:"query" validate:"max=100"`
	Filter   string `json:"filter"`
	Page     int    `json:"page" validate:"gte=0"`
	PageSize int    `json:"pageSize" validate:"gte=0,lte=100"`
}

func readListParams(r *http.Request, filters ...string) (listParams, error) {
	q := r.URL.Query()
	p := listParams{Query: q.Get("query"), Filter: q.Get("filter")}

	var bad map[string][]string
	for field, dst := range map[string]*int{"page": &p.Page, "pageSize": &p.PageSize} {
		raw := q.Get(field)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			if bad == nil {
				bad = map[string][]string{}
			}
			bad[field] = []string{"must be a number"}
			continue
		}
		*dst = n
	}
	if bad != nil {
		return p, utils.NewValidationError(bad)
	}
	if p.Filter != "" && len(filters) > 0 && !contains(filters, p.Filter) {
		return p, utils.NewValidationError(map[string][]string{"filter": {"is not supported"}})
	}
	return p, validation.ValidateStruct(&p)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
