package notes

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/USA-RedDragon/wander-server/internal/config"
	"github.com/USA-RedDragon/wander-server/internal/db/models"
	"github.com/USA-RedDragon/wander-server/internal/geo"
	"github.com/USA-RedDragon/wander-server/internal/metrics"
	"github.com/USA-RedDragon/wander-server/internal/storage"
	"github.com/go-errors/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/mattn/go-nulltype"
	"gorm.io/gorm"
)

var (
	ErrNoteNotFound    = errors.New("no note for this date")
	ErrStorageFailure  = errors.New("note storage failed")
	ErrInvalidDateKey  = errors.New("date must be formatted as YYYY-M-D")
	ErrFutureDate      = errors.New("notes cannot be saved for future dates")
	ErrEmptyNote       = errors.New("please enter a note to share")
	ErrUnknownCompress = errors.New("unknown export compression")
	ErrExportNotFound  = errors.New("note has not been exported")
)

const exportDir = "notes"

var exportSuffixes = map[config.Compression]string{
	config.CompressionNone: ".txt",
	config.CompressionGzip: ".txt.gz",
	config.CompressionZstd: ".txt.zst",
}

var exportContentTypes = map[config.Compression]string{
	config.CompressionNone: "text/plain; charset=utf-8",
	config.CompressionGzip: "application/gzip",
	config.CompressionZstd: "application/zstd",
}

// Exported is a note export as it sits in storage.
type Exported struct {
	Name        string
	ContentType string
	Data        []byte
}

// Note is a day's journal entry.
type Note struct {
	Name         string     `json:"name"`
	LocationName string     `json:"location_name"`
	Date         time.Time  `json:"date"`
	Text         string     `json:"note"`
	Location     *geo.Point `json:"location,omitempty"`
}

// DateKey formats t as YYYY-M-D without zero padding.
func DateKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// ParseDateKey accepts a padded or unpadded YYYY-M-D date and returns the
// canonical key along with midnight of that day in loc.
func ParseDateKey(s string, loc *time.Location) (string, time.Time, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return "", time.Time{}, ErrInvalidDateKey
	}
	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return "", time.Time{}, ErrInvalidDateKey
		}
		fields[i] = n
	}
	year, month, day := fields[0], fields[1], fields[2]
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return "", time.Time{}, ErrInvalidDateKey
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if date.Day() != day || int(date.Month()) != month {
		return "", time.Time{}, ErrInvalidDateKey
	}
	return DateKey(date), date, nil
}

type Store struct {
	db          *gorm.DB
	exports     storage.Storage
	compression config.Compression
	location    *time.Location
	metrics     *metrics.Metrics
	now         func() time.Time
}

type Option func(*Store)

// WithClock replaces the clock used to decide which dates are in the future.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(db *gorm.DB, exports storage.Storage, compression config.Compression, location *time.Location, metrics *metrics.Metrics, opts ...Option) *Store {
	if location == nil {
		location = time.Local
	}
	if compression == "" {
		compression = config.CompressionNone
	}
	s := &Store{
		db:          db,
		exports:     exports,
		compression: compression,
		location:    location,
		metrics:     metrics,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the key of the current day in the store's time zone.
func (s *Store) Today() string {
	return DateKey(s.now().In(s.location))
}

// Normalize validates a date key and returns it in canonical form.
func (s *Store) Normalize(dateKey string) (string, error) {
	key, _, err := ParseDateKey(dateKey, s.location)
	return key, err
}

// IsFuture reports whether dateKey names a day after today.
func (s *Store) IsFuture(dateKey string) (bool, error) {
	_, date, err := ParseDateKey(dateKey, s.location)
	if err != nil {
		return false, err
	}
	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	return date.After(today), nil
}

func (s *Store) observe(operation string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, ErrNoteNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	s.metrics.IncrementNoteOperations(operation, result)
}

func (s *Store) Get(ctx context.Context, dateKey string) (note Note, err error) {
	defer func() { s.observe("get", err) }()

	key, err := s.Normalize(dateKey)
	if err != nil {
		return Note{}, err
	}
	return s.get(ctx, key)
}

func (s *Store) get(ctx context.Context, key string) (Note, error) {
	row, err := models.FindNoteByDateKey(s.db.WithContext(ctx), key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, ErrNoteNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return fromModel(row), nil
}

// Put stores note under dateKey, replacing any earlier note for that day.
func (s *Store) Put(ctx context.Context, dateKey string, note Note) (err error) {
	defer func() { s.observe("put", err) }()

	key, date, err := ParseDateKey(dateKey, s.location)
	if err != nil {
		return err
	}
	if note.Date.IsZero() {
		note.Date = date
	}
	row := toModel(key, note)
	if err := models.UpsertNote(s.db.WithContext(ctx), &row); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	slog.Debug("Note saved", "date", key)
	s.refreshCount(ctx)
	return nil
}

// Count returns how many days have a note.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := models.CountNotes(s.db.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return count, nil
}

func (s *Store) refreshCount(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	count, err := s.Count(ctx)
	if err != nil {
		slog.Warn("Failed to count notes", "error", err)
		return
	}
	s.metrics.SetStoredNotes(float64(count))
}

// Export writes the note text for dateKey to export storage and returns the
// object name it was written to.
func (s *Store) Export(ctx context.Context, dateKey string) (name string, err error) {
	defer func() { s.observe("export", err) }()

	key, err := s.Normalize(dateKey)
	if err != nil {
		return "", err
	}
	note, err := s.get(ctx, key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(note.Text) == "" {
		return "", ErrEmptyNote
	}

	suffix, ok := exportSuffixes[s.compression]
	if !ok {
		return "", ErrUnknownCompress
	}

	dir, err := s.exportDirectory()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	defer dir.Close()

	// drop exports left behind under a previous compression setting
	for compression, stale := range exportSuffixes {
		if compression == s.compression {
			continue
		}
		if err := dir.Remove(key + stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}
	}

	file, err := dir.Create(key + suffix)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if err := s.writeCompressed(file, note.Text); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	name = exportDir + "/" + key + suffix
	slog.Info("Note exported", "date", key, "object", name)
	return name, nil
}

// ReadExport returns the stored export for dateKey under the configured
// compression, still compressed.
func (s *Store) ReadExport(ctx context.Context, dateKey string) (exported Exported, err error) {
	defer func() { s.observe("read_export", err) }()

	key, err := s.Normalize(dateKey)
	if err != nil {
		return Exported{}, err
	}
	suffix, ok := exportSuffixes[s.compression]
	if !ok {
		return Exported{}, ErrUnknownCompress
	}

	dir, err := s.exportDirectory()
	if err != nil {
		return Exported{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	defer dir.Close()

	file, err := dir.Open(key + suffix)
	if errors.Is(err, fs.ErrNotExist) {
		return Exported{}, ErrExportNotFound
	}
	if err != nil {
		return Exported{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Exported{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return Exported{
		Name:        exportDir + "/" + key + suffix,
		ContentType: exportContentTypes[s.compression],
		Data:        data,
	}, nil
}

func (s *Store) exportDirectory() (storage.Storage, error) {
	if err := s.exports.MkdirAll(exportDir, 0755); err != nil {
		return nil, err
	}
	return s.exports.Sub(exportDir)
}

func (s *Store) writeCompressed(w io.Writer, text string) error {
	switch s.compression {
	case config.CompressionGzip:
		gz := gzip.NewWriter(w)
		if _, err := io.WriteString(gz, text); err != nil {
			_ = gz.Close()
			return err
		}
		return gz.Close()
	case config.CompressionZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(enc, text); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, text)
		return err
	}
}

func toModel(key string, note Note) models.Note {
	row := models.Note{
		DateKey: key,
		Name:    note.Name,
		Date:    note.Date,
		Text:    note.Text,
	}
	if note.LocationName != "" {
		row.LocationName = nulltype.NullStringOf(note.LocationName)
	}
	if note.Location != nil {
		row.Latitude = nulltype.NullFloat64Of(note.Location.Latitude)
		row.Longitude = nulltype.NullFloat64Of(note.Location.Longitude)
	}
	return row
}

func fromModel(row models.Note) Note {
	note := Note{
		Name:         row.Name,
		LocationName: row.LocationName.StringValue(),
		Date:         row.Date,
		Text:         row.Text,
	}
	if row.Latitude.Valid() && row.Longitude.Valid() {
		note.Location = &geo.Point{
			Latitude:  row.Latitude.Float64Value(),
			Longitude: row.Longitude.Float64Value(),
		}
	}
	return note
}
