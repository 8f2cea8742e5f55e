package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"go.uber.org/zap"
)

type Severity string

const (
	Info     Severity = "info"
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

// Record is one administrative event.
type Record struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Severity   Severity       `json:"severity"`
	Timestamp  time.Time      `json:"timestamp"`
}

type Emitter interface {
	Emit(ctx context.Context, rec Record) error
}

// DBLogger writes records to the audit_logs table.
type DBLogger struct {
	db *sql.DB
}

func NewDBLogger(db *sql.DB) *DBLogger {
	return &DBLogger{db: db}
}

func (l *DBLogger) Emit(ctx context.Context, rec Record) error {
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO audit_logs (action, resource, resource_id, actor_id, details, severity, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`,
		rec.Action, rec.Resource, rec.ResourceID, rec.ActorID, details, string(rec.Severity), rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ZapLogger writes records as structured log lines.
type ZapLogger struct {
	logger *logging.Logger
}

func NewZapLogger(logger *logging.Logger) *ZapLogger {
	return &ZapLogger{logger: logging.OrGlobal(logger).Named("audit")}
}

func (l *ZapLogger) Emit(_ context.Context, rec Record) error {
	l.logger.Info("AUDIT",
		zap.String("action", rec.Action),
		zap.String("resource", rec.Resource),
		zap.String("resource_id", rec.ResourceID),
		zap.String("actor_id", rec.ActorID),
		zap.String("severity", string(rec.Severity)),
		zap.Any("details", rec.Details),
		zap.Time("timestamp", rec.Timestamp),
	)
	return nil
}

// Multi fans a record out to every emitter and joins their errors.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, rec Record) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Safe emits without ever failing the caller. Errors are logged locally.
type Safe struct {
	emitter Emitter
	logger  *logging.Logger
	now     func() time.Time
}

func NewSafe(emitter Emitter, logger *logging.Logger) *Safe {
	return &Safe{
		emitter: emitter,
		logger:  logging.OrGlobal(logger).Named("audit"),
		now:     time.Now,
	}
}

func (s *Safe) Log(ctx context.Context, rec Record) {
	if s == nil || s.emitter == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}
	if rec.Severity == "" {
		rec.Severity = Info
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("audit emitter panicked", zap.Any("panic", r), zap.String("action", rec.Action))
		}
	}()
	if err := s.emitter.Emit(ctx, rec); err != nil {
		s.logger.Warn("audit emission failed",
			zap.String("action", rec.Action),
			zap.String("resource_id", rec.ResourceID),
			zap.Error(err),
		)
	}
}
