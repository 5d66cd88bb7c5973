package attendance

import (
	"attendqr/lib/chrono"
	"attendqr/lib/qrdecode"
	"attendqr/lib/scrapers/portal"
	"attendqr/lib/telemetry"
	"attendqr/services/attendance/db"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("attendqr.services.attendance")
var meter = telemetry.Meter("attendqr.services.attendance")
var cycleCounter, _ = meter.Int64Counter("attendqr.cycles")
var savedCounter, _ = meter.Int64Counter("attendqr.images_saved")

// Capture is one saved image of a cycle.
type Capture struct {
	Path       string
	CapturedAt time.Time
	// nil when no qr symbol could be decoded
	Content *string
}

type HistoryEntry struct {
	ID      int64
	CycleID string
	Capture
}

type Config struct {
	BaseUrl string
	// nil browses the portal without logging in
	Credentials *portal.Credentials
	OutputDir   string
	Interval    time.Duration
	// clock used for capture timestamps, the local clock when nil
	Time chrono.TimeAPI
}

type Extractor interface {
	Extract(ctx context.Context, baseUrl string, creds *portal.Credentials, outputDir string) ([]string, error)
}

type Service struct {
	config    Config
	extractor Extractor
	decode    func(ctx context.Context, path string) (string, bool)
	qry       *db.Queries
	notifier  Notifier
	time      chrono.TimeAPI
	latest    *Latest

	// serializes cycles and guards the fields below
	cycleLock   sync.Mutex
	primed      bool
	lastContent *string
}

// NewService creates the service, database and notifier are optional.
func NewService(config Config, extractor Extractor, database *sql.DB, notifier Notifier) *Service {
	var qry *db.Queries
	if database != nil {
		qry = db.New(database)
	}
	var clock chrono.TimeAPI = chrono.NewStandardTime(nil)
	if config.Time != nil {
		clock = config.Time
	}
	return &Service{
		config:    config,
		extractor: extractor,
		decode:    qrdecode.DecodeFile,
		qry:       qry,
		notifier:  notifier,
		time:      clock,
		latest:    &Latest{},
	}
}

func (s *Service) OutputDir() string {
	return s.config.OutputDir
}

// Latest returns the most recently published record, ok is false until a
// cycle has saved at least one image.
func (s *Service) Latest() (Record, bool) {
	return s.latest.Get()
}

// RunCycle extracts, decodes and records the qr codes currently on the
// portal. The first capture becomes the latest record. A cycle that finds
// nothing returns nil and leaves the latest record untouched.
func (s *Service) RunCycle(ctx context.Context) ([]Capture, error) {
	s.cycleLock.Lock()
	defer s.cycleLock.Unlock()

	ctx, span := tracer.Start(ctx, "RunCycle")
	defer span.End()

	cycleId := uuid.NewString()
	span.SetAttributes(attribute.String("cycle_id", cycleId))
	cycleCounter.Add(ctx, 1)
	slog.InfoContext(
		ctx, "attempting qr extraction",
		"cycle_id", cycleId,
		"base_url", s.config.BaseUrl,
		"authenticated", s.config.Credentials != nil,
	)

	// history is read before this cycle's rows are written.
	s.primeLastContent(ctx)

	paths, err := s.extractor.Extract(ctx, s.config.BaseUrl, s.config.Credentials, s.config.OutputDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return nil, err
	}
	if len(paths) == 0 {
		slog.WarnContext(ctx, "no qr codes were extracted in this cycle", "cycle_id", cycleId)
		return nil, nil
	}
	savedCounter.Add(ctx, int64(len(paths)))

	now := s.time.Now()
	captures := make([]Capture, len(paths))
	for i, path := range paths {
		captures[i] = Capture{
			Path:       path,
			CapturedAt: now,
		}
		content, ok := s.decode(ctx, path)
		if ok {
			captures[i].Content = &content
		}
	}

	err = s.saveHistory(ctx, cycleId, captures)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "failed to save capture history", "cycle_id", cycleId, "err", err)
	}

	// TODO: publish the most recently captured code instead of the first one
	// in discovery order once a portal with several codes per cycle is seen.
	first := captures[0]
	s.latest.Set(Record{
		Path:      filepath.Base(first.Path),
		Timestamp: first.CapturedAt,
		Content:   first.Content,
	})
	slog.InfoContext(ctx, "updated latest qr code", "path", filepath.Base(first.Path), "decoded", first.Content != nil)

	s.notifyIfChanged(ctx, first)
	return captures, nil
}

func (s *Service) saveHistory(ctx context.Context, cycleId string, captures []Capture) error {
	if s.qry == nil {
		return nil
	}
	for _, c := range captures {
		content := sql.NullString{}
		if c.Content != nil {
			content = sql.NullString{String: *c.Content, Valid: true}
		}
		err := s.qry.InsertCapture(ctx, db.InsertCaptureParams{
			CycleID:    cycleId,
			Path:       c.Path,
			CapturedAt: c.CapturedAt.Unix(),
			Content:    content,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// primeLastContent seeds change detection from history so a restart does
// not re-notify about a code that was already sent.
func (s *Service) primeLastContent(ctx context.Context) {
	if s.primed {
		return
	}
	s.primed = true
	if s.qry == nil {
		return
	}
	content, err := s.qry.GetLastContent(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to read last capture", "err", err)
		return
	}
	if content.Valid {
		s.lastContent = &content.String
	}
}

func (s *Service) notifyIfChanged(ctx context.Context, capture Capture) {
	if capture.Content == nil {
		return
	}
	if s.lastContent != nil && *s.lastContent == *capture.Content {
		return
	}
	s.lastContent = capture.Content
	if s.notifier == nil {
		return
	}

	err := s.notifier.Notify(ctx, capture)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send notification", "err", err)
		return
	}
	slog.InfoContext(ctx, "sent new qr code notification", "path", capture.Path)
}

// Run does a cycle immediately and then one every interval until ctx is
// done. Cycle failures are logged, they never stop the loop.
func (s *Service) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "starting background qr extraction", "interval", s.config.Interval.String())
	for {
		_, err := s.RunCycle(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			slog.ErrorContext(ctx, "error in extraction cycle", "err", err)
		}

		slog.InfoContext(ctx, "waiting until next extraction", "interval", s.config.Interval.String())
		timer := time.NewTimer(s.config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// History returns the most recent captures, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()

	if s.qry == nil {
		return nil, nil
	}
	rows, err := s.qry.ListCaptures(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	entries := make([]HistoryEntry, len(rows))
	for i, row := range rows {
		entries[i] = HistoryEntry{
			ID:      row.ID,
			CycleID: row.CycleID,
			Capture: Capture{
				Path:       row.Path,
				CapturedAt: time.Unix(row.CapturedAt, 0),
			},
		}
		if row.Content.Valid {
			content := row.Content.String
			entries[i].Content = &content
		}
	}
	return entries, nil
}
