// Package export runs the activity export: it pages through the activity list
// oldest first, fetches each activity's detail, device and gear, persists the
// chosen artifact and appends one CSV row per activity.
package export

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sstent/garminexport/internal/activity"
	"github.com/sstent/garminexport/internal/config"
	"github.com/sstent/garminexport/internal/convert"
	"github.com/sstent/garminexport/internal/csvexport"
	"github.com/sstent/garminexport/internal/database"
	"github.com/sstent/garminexport/internal/garmin"
	"github.com/sstent/garminexport/internal/models"
	"github.com/sstent/garminexport/internal/properties"
	"github.com/sstent/garminexport/internal/settings"
)

// CSVFileName is the name of the CSV written into the export directory.
const CSVFileName = "activities.csv"

// API is the part of the Garmin Connect client the export needs.
type API interface {
	DeviceAPI
	GearAPI
	DownloadAPI
	TotalActivities(ctx context.Context) (int, error)
	ListActivities(ctx context.Context, start, limit int) ([]activity.Record, error)
	ActivityDetail(ctx context.Context, activityID string) (garmin.Detail, error)
	ActivityTypes(ctx context.Context) (properties.Properties, error)
	EventTypes(ctx context.Context) (properties.Properties, error)
}

// Ledger records exported activities.
type Ledger interface {
	RecordExport(ctx context.Context, e database.Export) error
}

// Inspector reads metrics back from a written artifact.
type Inspector interface {
	Inspect(path string) (*models.ActivityMetrics, error)
}

// Options control what is exported and how files are named.
type Options struct {
	Directory string
	// Subdir may contain {YYYY} and {MM}, filled from the activity start.
	Subdir string
	Format garmin.Format
	// Unzip removes the original zip once its entries are extracted.
	Unzip bool
	// OriginalTime sets the modification time of written files to the activity start.
	OriginalTime bool
	// Desc appends the description to file names, cut to DescLength when positive.
	Desc       bool
	DescLength int
	// FilePrefix names files after the start time as YYYYMMDD-HHMMSS.
	FilePrefix bool
	Template   csvexport.Template
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID      string
	Requested  int
	Processed  int
	Downloaded int
	Skipped    int
	Empty      int
	CSVPath    string
}

// Service runs exports against one Garmin Connect session.
type Service struct {
	api         API
	opts        Options
	maxTries    int
	pageSize    int
	activityURL string

	logger    *log.Logger
	progress  io.Writer
	ledger    Ledger
	inspector Inspector
}

// Option customises a Service.
type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProgress sets where the per-activity progress lines go.
func WithProgress(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.progress = w
		}
	}
}

// WithLedger records every exported activity in l.
func WithLedger(l Ledger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

// WithInspector reads metrics from written artifacts for the ledger.
func WithInspector(i Inspector) Option {
	return func(s *Service) {
		s.inspector = i
	}
}

// NewService creates a Service.
func NewService(api API, cfg config.Config, opts Options, options ...Option) *Service {
	if len(opts.Template.Columns) == 0 {
		opts.Template = csvexport.DefaultTemplate()
	}
	if opts.Format == "" {
		opts.Format = garmin.FormatGPX
	}
	s := &Service{
		api:         api,
		opts:        opts,
		maxTries:    cfg.MaxTries,
		pageSize:    cfg.PageSize,
		activityURL: cfg.URLs.ActivityPage,
		logger:      log.Default(),
		progress:    io.Discard,
	}
	if s.maxTries <= 0 {
		s.maxTries = 3
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// PageSize is the list limit for the next page: what remains, capped at
// pageSize and at config.MaxPageSize. Run requests pages from the oldest end
// of the wanted range, so the offset shrinks and the last request is at 0.
func PageSize(remaining, pageSize int) int {
	if pageSize <= 0 || pageSize > config.MaxPageSize {
		pageSize = config.MaxPageSize
	}
	return min(remaining, pageSize)
}

// run holds the per-run state shared by every activity.
type run struct {
	id        string
	total     int
	n         int
	index     int
	devices   *DeviceResolver
	gear      *GearResolver
	download  *Downloader
	projector *csvexport.Projector
	summary   Summary
}

// Run exports count activities. Any error it returns ends the run; the CSV
// keeps the rows of every activity completed before it.
func (s *Service) Run(ctx context.Context, count Count) (Summary, error) {
	if err := os.MkdirAll(s.opts.Directory, 0o755); err != nil {
		return Summary{}, fmt.Errorf("failed to create export directory: %w", err)
	}

	total, err := s.api.TotalActivities(ctx)
	if err != nil {
		return Summary{}, err
	}
	stored, err := settings.Read(s.opts.Directory)
	if err != nil {
		return Summary{}, err
	}
	n := count.resolve(total, stored.Index(string(s.opts.Format)))
	if n == 0 {
		s.logger.Warn("No new activities.")
	}

	csvPath := filepath.Join(s.opts.Directory, CSVFileName)
	csvFile, filter, err := s.openCSV(csvPath)
	if err != nil {
		return Summary{}, err
	}
	defer csvFile.Close()

	r := &run{
		id:        uuid.NewString(),
		total:     total,
		n:         n,
		devices:   NewDeviceResolver(s.api, s.logger),
		gear:      NewGearResolver(s.api, s.logger),
		download:  NewDownloader(s.api, s.opts, s.logger),
		projector: csvexport.NewProjector(filter, s.typeNames(ctx), s.activityURL, s.logger),
	}
	r.summary = Summary{RunID: r.id, Requested: n, CSVPath: csvPath}
	s.logger.Info("Starting export", "run", r.id, "count", count, "activities", n, "format", s.opts.Format)

	// The list is newest first. Pages are requested from the oldest end of the
	// wanted range and each page is walked backwards, so activities are
	// processed in chronological order.
	for remaining := n; remaining > 0; {
		limit := PageSize(remaining, s.pageSize)
		remaining -= limit
		page, err := s.api.ListActivities(ctx, remaining, limit)
		if err != nil {
			return r.summary, err
		}
		if len(page) != limit {
			s.logger.Warn(fmt.Sprintf("Expected %d activities, got %d.", limit, len(page)))
		}

		for i := len(page) - 1; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				return r.summary, err
			}
			r.index++
			if err := s.processActivity(ctx, r, page[i]); err != nil {
				return r.summary, err
			}
			if err := settings.WriteIndex(s.opts.Directory, string(s.opts.Format), r.total-r.n+r.index); err != nil {
				return r.summary, err
			}
		}
	}

	recordRunCompleted(time.Now())
	s.logger.Info("Export completed", "run", r.id, "directory", s.opts.Directory,
		"processed", r.summary.Processed, "downloaded", r.summary.Downloaded, "skipped", r.summary.Skipped)
	return r.summary, nil
}

// openCSV creates the CSV, replacing the one of an earlier run, and writes
// the header of the current template.
func (s *Service) openCSV(path string) (*os.File, *csvexport.Filter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open csv: %w", err)
	}
	filter := csvexport.NewFilter(f, s.opts.Template)
	if err := filter.WriteHeader(); err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, filter, nil
}

// typeNames loads the activity and event type display names. They only
// decorate the CSV, so failures leave the names empty.
func (s *Service) typeNames(ctx context.Context) csvexport.TypeNames {
	var names csvexport.TypeNames
	var err error
	if names.Activity, err = s.api.ActivityTypes(ctx); err != nil {
		s.logger.Warn("Could not load activity type names", "err", err)
	}
	if names.Event, err = s.api.EventTypes(ctx); err != nil {
		s.logger.Warn("Could not load event type names", "err", err)
	}
	return names
}

func (s *Service) processActivity(ctx context.Context, r *run, summary activity.Record) error {
	id := summary.String("activityId")
	fmt.Fprintf(s.progress, "[%d/%d] Processing activity %s: %s\n", r.index, r.n, id, summary.String("activityName"))

	detail, err := s.fetchDetail(ctx, id)
	if err != nil {
		return err
	}

	ext := s.extract(summary, detail.Record)
	s.printExtract(ext, summary)
	ext.Device, _ = r.devices.Resolve(ctx, detail.Record)
	ext.Gear, _ = r.gear.Resolve(ctx, id)

	out, err := r.download.Download(ctx, Request{
		ActivityID:     id,
		Detail:         detail,
		StartTimeLocal: summary.String("startTimeLocal"),
		StartTime:      ext.StartTime,
		Description:    summary.String("description"),
	})
	if err != nil {
		return err
	}
	recordDownload(string(s.opts.Format), out)
	switch {
	case out.Skipped:
		r.summary.Skipped++
	case out.Empty:
		r.summary.Empty++
	default:
		r.summary.Downloaded++
	}

	if err := r.projector.Write(ext, summary, detail.Record); err != nil {
		return err
	}
	recordProcessed(string(s.opts.Format))
	r.summary.Processed++

	s.record(ctx, r.id, id, summary, ext, out)
	return nil
}

// extract derives start, end and elapsed time. The elapsed duration comes
// from the detail when it has one, from the summary otherwise.
func (s *Service) extract(summary, detail activity.Record) csvexport.Extract {
	var ext csvexport.Extract

	start, err := convert.OffsetDateTime(summary.String("startTimeLocal"), summary.String("startTimeGMT"))
	if err != nil {
		s.logger.Warn("Could not determine start time", "activityId", summary.String("activityId"), "err", err)
	}

	elapsed, ok := number(detail.Sub(summaryDTO), "elapsedDuration")
	if !ok {
		elapsed, _ = summary.Float("duration")
	}
	ext.ElapsedDuration = elapsed
	ext.ElapsedSeconds = int64(math.RoundToEven(elapsed))
	if !start.IsZero() {
		ext.StartTime = start
		ext.EndTime = start.Add(time.Duration(ext.ElapsedSeconds) * time.Second)
	}
	return ext
}

func (s *Service) printExtract(ext csvexport.Extract, summary activity.Record) {
	distance := "0.000km"
	if meters, ok := summary.Float("distance"); ok {
		distance = strconv.FormatFloat(meters/1000, 'f', 3, 64) + "km"
	}
	start := ""
	if !ext.StartTime.IsZero() {
		start = convert.ISO(ext.StartTime)
	}
	fmt.Fprintf(s.progress, "\t%s, %s, %s\n", start, convert.HHMMSS(float64(ext.ElapsedSeconds)), distance)
}

// record writes the ledger row for an activity. The ledger is bookkeeping
// only, so failures are logged and the export goes on.
func (s *Service) record(ctx context.Context, runID, id string, summary activity.Record, ext csvexport.Extract, out Outcome) {
	if s.ledger == nil {
		return
	}
	activityID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		s.logger.Warn("Activity id is not numeric, not recorded", "activityId", id)
		return
	}

	e := database.Export{
		ActivityID:   activityID,
		Format:       string(s.opts.Format),
		RunID:        runID,
		Name:         summary.String("activityName"),
		ActivityType: summary.Sub("activityType").String("typeKey"),
		StartTime:    ext.StartTime,
		Duration:     int(ext.ElapsedSeconds),
		Device:       ext.Device,
		Gear:         ext.Gear,
		Filename:     out.Path,
		Downloaded:   true,
		Empty:        out.Empty,
	}
	e.Distance, _ = summary.Float("distance")
	if info, err := os.Stat(out.Path); err == nil {
		e.FileSize = info.Size()
	}
	if m := s.inspect(out); m != nil {
		e.MaxHeartRate = m.MaxHeartRate
		e.AvgHeartRate = m.AvgHeartRate
		e.AvgPower = m.AvgPower
		e.Calories = m.Calories
		e.ElevationGain = m.ElevationGain
	}

	if err := s.ledger.RecordExport(ctx, e); err != nil {
		s.logger.Warn("Could not record export", "activityId", id, "err", err)
	}
}

// inspect returns the metrics of the first written file that parses.
func (s *Service) inspect(out Outcome) *models.ActivityMetrics {
	if s.inspector == nil || out.Empty {
		return nil
	}
	files := out.Files
	if out.Skipped {
		files = []string{out.Path}
	}
	for _, f := range files {
		m, err := s.inspector.Inspect(f)
		if err == nil {
			return m
		}
		s.logger.Debug("artifact not inspected", "path", f, "err", err)
	}
	return nil
}

func number(r activity.Record, field string) (float64, bool) {
	if activity.AbsentOrNull(field, r) {
		return 0, false
	}
	return r.Float(field)
}
