// Package audit records progression and admin actions to the audit_logs
// table through an asynchronous batching writer.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/skillbridge/skillbridge/server/hook"
	"github.com/skillbridge/skillbridge/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
	maxTraceLen   = 64
)

// Entry is one audit record before serialization.
type Entry struct {
	TraceID    string
	UserID     string
	Action     string
	Request    interface{}
	Response   interface{}
	Error      string
	IP         string
	DurationMs int
}

// Service writes entries in batches. Log never blocks; entries are dropped
// with a warning when the queue is full.
type Service struct {
	db     *gorm.DB
	ch     chan *model.AuditLog
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates the service and starts its worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.AuditLog, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues entry.
func (svc *Service) Log(entry Entry) {
	record := &model.AuditLog{
		TraceID:    truncate(entry.TraceID, maxTraceLen),
		UserID:     entry.UserID,
		Action:     entry.Action,
		Request:    toJSON(entry.Request),
		Response:   toJSON(entry.Response),
		Error:      entry.Error,
		IP:         entry.IP,
		DurationMs: entry.DurationMs,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action), zap.String("user_id", entry.UserID))
	}
}

// RecordEvent is a hook that audits a committed progression event.
func (svc *Service) RecordEvent(_ context.Context, ev *hook.ProgressEvent) error {
	svc.Log(Entry{
		TraceID: ev.TraceID,
		UserID:  ev.UserID,
		Action:  string(ev.Name),
		Request: map[string]string{"subject": ev.Subject},
		Response: map[string]interface{}{
			"outcome":   ev.Outcome,
			"version":   ev.Progress.Version,
			"phase":     ev.Progress.CurrentPhase,
			"readiness": ev.Progress.ReadinessScore,
		},
	})
	return nil
}

// Stop flushes queued entries and waits for the worker to exit.
func (svc *Service) Stop(_ context.Context) {
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.CreateInBatches(batch, batchSize).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
