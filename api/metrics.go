package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type boardRequestMetrics struct {
	logger        *log.Logger
	start         time.Time
	fetchDuration time.Duration
	cacheHit      bool
	errorStage    string
}

func newBoardRequestMetrics(logger *log.Logger) *boardRequestMetrics {
	return &boardRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
}

func (m *boardRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *boardRequestMetrics) SetCacheHit(hit bool) {
	m.cacheHit = hit
}

func (m *boardRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *boardRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":     "/api/boards/:boardId",
		"status":    status,
		"total_ms":  durationToMillis(time.Since(m.start)),
		"cache_hit": m.cacheHit,
	}
	if m.fetchDuration > 0 {
		fields["fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("board.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
