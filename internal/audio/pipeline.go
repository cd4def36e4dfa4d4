package audio

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// CryEvent is emitted for every chunk classified as crying above the
// detection threshold.
type CryEvent struct {
	SessionID  string    `json:"session_id"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

type Sink func(ctx context.Context, ev CryEvent)

// Report summarizes one pipeline run.
type Report struct {
	Chunks     int `json:"chunks"`
	Detections int `json:"detections"`
	Skipped    int `json:"skipped"`
}

// Pipeline chunks an audio stream and classifies every chunk.
// Classifier failures are logged and skipped so one bad chunk never
// stalls the stream.
type Pipeline struct {
	classifier Classifier
	threshold  float64
	chunkMs    int
	byteRate   int
	log        *logrus.Logger
	sink       Sink
}

func NewPipeline(classifier Classifier, threshold float64, chunkMs, byteRate int, log *logrus.Logger, sink Sink) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		threshold:  threshold,
		chunkMs:    chunkMs,
		byteRate:   byteRate,
		log:        log,
		sink:       sink,
	}
}

// Run consumes the stream to exhaustion. The trailing partial chunk is
// classified too, so short clips are not silently dropped.
func (p *Pipeline) Run(ctx context.Context, sessionID string, r io.Reader) (Report, error) {
	chunker := NewChunker(p.chunkMs, p.byteRate)
	var report Report

	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, chunk := range chunker.Feed(buf[:n]) {
				p.handleChunk(ctx, sessionID, chunk, &report)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return report, err
		}
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}

	if rest := chunker.Flush(); len(rest) > 0 {
		p.handleChunk(ctx, sessionID, rest, &report)
	}
	return report, nil
}

func (p *Pipeline) handleChunk(ctx context.Context, sessionID string, chunk []byte, report *Report) {
	report.Chunks++

	v, err := p.classifier.Classify(ctx, chunk)
	if err != nil {
		report.Skipped++
		if p.log != nil {
			p.log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"chunk":      report.Chunks,
			}).WithError(err).Warn("classifier failed, skipping chunk")
		}
		return
	}

	if v.Label == LabelCrying && v.Confidence > p.threshold {
		report.Detections++
		if p.sink != nil {
			p.sink(ctx, CryEvent{SessionID: sessionID, Confidence: v.Confidence, At: time.Now()})
		}
	}
}
