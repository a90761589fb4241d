package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimConfig controls the size and shape of a simulation run.
type SimConfig struct {
	EngineURL    string
	NumUsers     int
	NumQuestions int
	NumVotes     int
	NumEdits     int
	Workers      int
	ZipfS        float64
	UpvoteRatio  float64
	Seed         int64
	Timeout      time.Duration
	MaxRetries   int
}

// DefaultConfig returns a small run suitable against a local server.
func DefaultConfig() SimConfig {
	return SimConfig{
		EngineURL:    "http://localhost:8080",
		NumUsers:     50,
		NumQuestions: 20,
		NumVotes:     2000,
		NumEdits:     20,
		Workers:      8,
		ZipfS:        1.07,
		UpvoteRatio:  0.8,
		Timeout:      10 * time.Second,
		MaxRetries:   3,
	}
}

// SimulationStats counts requests made during a run.
type SimulationStats struct {
	mu             sync.Mutex
	StartTime      time.Time
	TotalRequests  int64
	FailedRequests int64
	TotalVotes     int
	TotalEdits     int
	totalLatency   time.Duration
}

// SimulationMetrics is a snapshot of SimulationStats.
type SimulationMetrics struct {
	TotalUsers        int
	TotalQuestions    int
	TotalVotes        int
	TotalEdits        int
	ErrorCount        int64
	AverageLatency    time.Duration
	RequestsPerSecond float64
}

// SimulatedUser is a signed-up account and its bearer token.
type SimulatedUser struct {
	ID       uuid.UUID
	Username string
	Token    string
}

// SimulatedQuestion tracks what the simulator believes a question holds.
type SimulatedQuestion struct {
	ID     uuid.UUID
	Author *SimulatedUser
	Tags   []string
}

// Simulator drives the API with concurrent users and keeps its own ledger of
// the votes and tags it expects the server to hold.
type Simulator struct {
	config    SimConfig
	client    *http.Client
	logger    *zap.Logger
	stats     *SimulationStats
	runID     string
	tagPool   []string
	users     []*SimulatedUser
	questions []*SimulatedQuestion
	ledger    *Ledger
}

func NewSimulator(config SimConfig, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.ZipfS <= 1 {
		config.ZipfS = 1.07
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	runID := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	pool := make([]string, 0, len(baseTags))
	for _, t := range baseTags {
		pool = append(pool, "s"+runID+"-"+t)
	}
	return &Simulator{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		logger:  logger.With(zap.String("run", runID)),
		stats:   &SimulationStats{StartTime: time.Now()},
		runID:   runID,
		tagPool: pool,
		ledger:  NewLedger(),
	}
}

// Run sets up users and questions, replays the workload and audits the result.
func (s *Simulator) Run(ctx context.Context) (*AuditReport, error) {
	s.logger.Info("Starting simulation",
		zap.String("engine", s.config.EngineURL),
		zap.Int("users", s.config.NumUsers),
		zap.Int("questions", s.config.NumQuestions),
		zap.Int("votes", s.config.NumVotes),
	)
	if err := s.createUsers(ctx); err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	if err := s.createQuestions(ctx); err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}
	if err := s.simulateActivity(ctx); err != nil {
		return nil, err
	}
	return s.Audit(ctx)
}

// apiError is a non-2xx response from the engine.
type apiError struct {
	Status int
	Code   string
	Msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s %s", e.Status, e.Code, e.Msg)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// makeRequest sends one JSON request, retrying transport failures and 5xx
// responses, and decodes the envelope's data into out.
func (s *Simulator) makeRequest(ctx context.Context, method, endpoint, token string, data, out interface{}) error {
	var body []byte
	if data != nil {
		var err error
		if body, err = json.Marshal(data); err != nil {
			return err
		}
	}

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, method, s.config.EngineURL+endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		start := time.Now()
		resp, err := s.client.Do(req)
		if err != nil {
			s.recordRequestMetrics(start, err)
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		s.recordRequestMetrics(start, err)
		if err != nil {
			return err
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return backoff.Permanent(fmt.Errorf("invalid response from %s: %w", endpoint, err))
		}
		if resp.StatusCode >= 400 {
			apiErr := &apiError{Status: resp.StatusCode}
			if env.Error != nil {
				apiErr.Code, apiErr.Msg = env.Error.Code, env.Error.Message
			}
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	return backoff.RetryNotify(
		attempt,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.config.MaxRetries)), ctx),
		func(err error, wait time.Duration) {
			s.logger.Debug("Retrying request",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	)
}

func (s *Simulator) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	s.stats.TotalRequests++
	s.stats.totalLatency += time.Since(start)
	if err != nil {
		s.stats.FailedRequests++
	}
}

func (s *Simulator) countVote() {
	s.stats.mu.Lock()
	s.stats.TotalVotes++
	s.stats.mu.Unlock()
}

func (s *Simulator) countEdit() {
	s.stats.mu.Lock()
	s.stats.TotalEdits++
	s.stats.mu.Unlock()
}

// GetMetrics returns the current simulation metrics.
func (s *Simulator) GetMetrics() SimulationMetrics {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	m := SimulationMetrics{
		TotalUsers:     len(s.users),
		TotalQuestions: len(s.questions),
		TotalVotes:     s.stats.TotalVotes,
		TotalEdits:     s.stats.TotalEdits,
		ErrorCount:     s.stats.FailedRequests,
	}
	if s.stats.TotalRequests > 0 {
		m.AverageLatency = s.stats.totalLatency / time.Duration(s.stats.TotalRequests)
	}
	if elapsed := time.Since(s.stats.StartTime).Seconds(); elapsed > 0 {
		m.RequestsPerSecond = float64(s.stats.TotalRequests) / elapsed
	}
	return m
}
