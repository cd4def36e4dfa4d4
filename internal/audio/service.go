package audio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"backend-carewatch/internal/alert"
	"backend-carewatch/internal/session"
	"backend-carewatch/internal/syncer"

	"github.com/sirupsen/logrus"
)

var (
	ErrSessionNotActive = errors.New("session is not active")
	ErrCryDisabled      = errors.New("cry detection is disabled for this session")
)

// 16kHz mono 16-bit PCM, the clip format devices upload.
const defaultByteRate = 32000

type SessionSource interface {
	Get(ctx context.Context, id string) (session.Session, syncer.Result, error)
}

type AlertRaiser interface {
	Raise(ctx context.Context, a alert.Alert) (alert.Alert, error)
}

type Service struct {
	sessions   SessionSource
	alerts     AlertRaiser
	classifier Classifier
	threshold  float64
	chunkMs    int
	log        *logrus.Logger
}

func NewService(sessions SessionSource, alerts AlertRaiser, classifier Classifier, threshold float64, chunkMs int, log *logrus.Logger) *Service {
	return &Service{
		sessions:   sessions,
		alerts:     alerts,
		classifier: classifier,
		threshold:  threshold,
		chunkMs:    chunkMs,
		log:        log,
	}
}

// ProcessClip runs an uploaded clip through the detection pipeline. The
// session must be active with cry detection enabled. Every detection
// raises a cry_detection alert.
func (s *Service) ProcessClip(ctx context.Context, sessionID string, r io.Reader) (Report, error) {
	sess, _, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Report{}, err
	}
	if sess.Status != session.StatusActive {
		return Report{}, ErrSessionNotActive
	}
	if !sess.CryEnabled {
		return Report{}, ErrCryDisabled
	}

	pipeline := NewPipeline(s.classifier, s.threshold, s.chunkMs, defaultByteRate, s.log, func(ctx context.Context, ev CryEvent) {
		if s.alerts == nil {
			return
		}
		_, err := s.alerts.Raise(ctx, alert.Alert{
			SessionID:  ev.SessionID,
			ChildID:    sess.ChildID,
			Type:       alert.TypeCryDetection,
			Severity:   crySeverity(ev.Confidence),
			Title:      "Crying detected",
			Message:    fmt.Sprintf("crying detected (confidence %.2f)", ev.Confidence),
			Confidence: ev.Confidence,
		})
		if err != nil && s.log != nil {
			s.log.WithField("session_id", ev.SessionID).WithError(err).Warn("failed to raise cry alert")
		}
	})
	return pipeline.Run(ctx, sessionID, r)
}

func crySeverity(confidence float64) alert.Severity {
	if confidence >= 0.9 {
		return alert.SeverityCritical
	}
	return alert.SeverityHigh
}
