// Package catalog is the relational geospatial catalog the ingester writes
// to: GORM models for datasets and their reference rows, and a Store with the
// get and get-or-create operations ingestion needs.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
	"github.com/couchcryptid/buoy-ingest-service/internal/vocab"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("catalog: not found")

	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("catalog: duplicate")
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Store wraps a GORM connection to the catalog schema.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the catalog database and migrates the schema.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to catalog database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get catalog database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; SQLite locks the whole file.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	s := &Store{db: db, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates or updates the catalog tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CheckReadiness reports whether the catalog database answers.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("catalog database: %w", err)
	}
	return nil
}

// Transaction runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
}

// DatasetByURI returns the dataset registered under the exact URI string.
func (s *Store) DatasetByURI(ctx context.Context, uri string) (*Dataset, error) {
	var du DatasetURI
	err := s.db.WithContext(ctx).
		Preload("Dataset").
		Where("uri = ?", uri).
		First(&du).Error
	if err != nil {
		return nil, classify(fmt.Sprintf("dataset uri %q", uri), err)
	}
	return du.Dataset, nil
}

// GetPlatform returns the platform row matching every vocabulary field.
func (s *Store) GetPlatform(ctx context.Context, p vocab.Platform) (*Platform, error) {
	var row Platform
	if err := s.db.WithContext(ctx).Where(platformKey(p)).First(&row).Error; err != nil {
		return nil, classify(fmt.Sprintf("platform %q/%q", p.Category, p.SeriesEntity), err)
	}
	return &row, nil
}

// GetInstrument returns the instrument row matching every vocabulary field.
func (s *Store) GetInstrument(ctx context.Context, i vocab.Instrument) (*Instrument, error) {
	var row Instrument
	if err := s.db.WithContext(ctx).Where(instrumentKey(i)).First(&row).Error; err != nil {
		return nil, classify(fmt.Sprintf("instrument %q/%q", i.Category, i.Class), err)
	}
	return &row, nil
}

// GetOrCreateSource returns the source for the platform/instrument pair,
// creating it when absent.
func (s *Store) GetOrCreateSource(ctx context.Context, platformID, instrumentID uint) (*Source, error) {
	key := map[string]any{"platform_id": platformID, "instrument_id": instrumentID}
	src := Source{PlatformID: platformID, InstrumentID: instrumentID}
	err := s.db.WithContext(ctx).Where(key).FirstOrCreate(&src).Error
	if err != nil && isUniqueViolation(err) {
		// Lost a race with another writer; the row exists now.
		err = s.db.WithContext(ctx).Where(key).First(&src).Error
	}
	if err != nil {
		return nil, classify("source", err)
	}
	return &src, nil
}

// GeometryWKT renders a geometry in the canonical form used for storage and
// deduplication.
func GeometryWKT(g orb.Geometry) string {
	return wkt.MarshalString(g)
}

func geometryHash(geometryWKT string) string {
	sum := sha256.Sum256([]byte(geometryWKT))
	return hex.EncodeToString(sum[:])
}

// LocationByGeometry returns the location storing exactly this geometry.
func (s *Store) LocationByGeometry(ctx context.Context, g orb.Geometry) (*GeographicLocation, error) {
	var loc GeographicLocation
	err := s.db.WithContext(ctx).
		Where("geometry_hash = ?", geometryHash(GeometryWKT(g))).
		First(&loc).Error
	if err != nil {
		return nil, classify("geographic location", err)
	}
	return &loc, nil
}

// CreateLocation stores a new geometry. If another writer stored the same
// geometry first, that row is returned instead.
func (s *Store) CreateLocation(ctx context.Context, g orb.Geometry, placeName string) (*GeographicLocation, error) {
	text := GeometryWKT(g)
	loc := GeographicLocation{Geometry: text, GeometryHash: geometryHash(text), PlaceName: placeName}
	err := s.db.WithContext(ctx).Create(&loc).Error
	if err != nil && isUniqueViolation(err) {
		return s.LocationByGeometry(ctx, g)
	}
	if err != nil {
		return nil, classify("geographic location", err)
	}
	return &loc, nil
}

// GetOrCreateLocation returns the location storing g, creating it when
// absent. placeName is only called on create and may be nil.
func (s *Store) GetOrCreateLocation(ctx context.Context, g orb.Geometry, placeName func() string) (*GeographicLocation, bool, error) {
	loc, err := s.LocationByGeometry(ctx, g)
	if err == nil {
		return loc, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	name := ""
	if placeName != nil {
		name = placeName()
	}
	loc, err = s.CreateLocation(ctx, g, name)
	if err != nil {
		return nil, false, err
	}
	return loc, true, nil
}

// Track decodes a stored line-string geometry.
func (l *GeographicLocation) Track() (orb.LineString, error) {
	ls, err := wkt.UnmarshalLineString(l.Geometry)
	if err != nil {
		return nil, fmt.Errorf("decode geometry of location %d: %w", l.ID, err)
	}
	return ls, nil
}

// GetDataCenter returns the data center with the given short name.
func (s *Store) GetDataCenter(ctx context.Context, shortName string) (*DataCenter, error) {
	var dc DataCenter
	if err := s.db.WithContext(ctx).Where("short_name = ?", shortName).First(&dc).Error; err != nil {
		return nil, classify(fmt.Sprintf("data center %q", shortName), err)
	}
	return &dc, nil
}

// GetISOTopicCategory returns the ISO topic category with the given name.
func (s *Store) GetISOTopicCategory(ctx context.Context, name string) (*ISOTopicCategory, error) {
	var c ISOTopicCategory
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return nil, classify(fmt.Sprintf("iso topic category %q", name), err)
	}
	return &c, nil
}

// ParameterByStandardName returns the first parameter with the given CF
// standard name.
func (s *Store) ParameterByStandardName(ctx context.Context, standardName string) (*Parameter, error) {
	var p Parameter
	err := s.db.WithContext(ctx).
		Where("standard_name = ?", standardName).
		Order("id").
		First(&p).Error
	if err != nil {
		return nil, classify(fmt.Sprintf("parameter %q", standardName), err)
	}
	return &p, nil
}

// EntryIDsWithPrefix lists entry ids starting with prefix. LIKE wildcards in
// the prefix may widen the match; callers filter.
func (s *Store) EntryIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&Dataset{}).
		Where("entry_id LIKE ?", prefix+"%").
		Pluck("entry_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list entry ids with prefix %q: %w", prefix, err)
	}
	return ids, nil
}

// NextEntrySuffix returns the next free numeric suffix for a station prefix.
func (s *Store) NextEntrySuffix(ctx context.Context, prefix string) (int, error) {
	ids, err := s.EntryIDsWithPrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}
	return domain.NextSuffix(prefix, ids), nil
}

// CreateDataset inserts a dataset. Associations must already exist and are
// referenced by id only.
func (s *Store) CreateDataset(ctx context.Context, ds *Dataset) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(ds).Error; err != nil {
		return classify(fmt.Sprintf("dataset %q", ds.EntryID), err)
	}
	return nil
}

// CreateDatasetURI inserts a dataset URI.
func (s *Store) CreateDatasetURI(ctx context.Context, du *DatasetURI) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(du).Error; err != nil {
		return classify(fmt.Sprintf("dataset uri %q", du.URI), err)
	}
	return nil
}

// CreateDatasetParameter inserts a dataset/parameter join row.
func (s *Store) CreateDatasetParameter(ctx context.Context, dp *DatasetParameter) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(dp).Error; err != nil {
		return classify("dataset parameter", err)
	}
	return nil
}

// DatasetParameters returns the parameters joined to a dataset, in join
// insertion order.
func (s *Store) DatasetParameters(ctx context.Context, datasetID uint) ([]Parameter, error) {
	var params []Parameter
	err := s.db.WithContext(ctx).
		Joins("JOIN dataset_parameters ON dataset_parameters.parameter_id = parameters.id").
		Where("dataset_parameters.dataset_id = ?", datasetID).
		Order("dataset_parameters.id").
		Find(&params).Error
	if err != nil {
		return nil, fmt.Errorf("list parameters of dataset %d: %w", datasetID, err)
	}
	return params, nil
}

// DatasetByEntryID returns a dataset with its reference rows loaded.
func (s *Store) DatasetByEntryID(ctx context.Context, entryID string) (*Dataset, error) {
	var ds Dataset
	err := s.db.WithContext(ctx).
		Preload("ISOTopicCategory").
		Preload("DataCenter").
		Preload("Source.Platform").
		Preload("Source.Instrument").
		Preload("GeographicLocation").
		Where("entry_id = ?", entryID).
		First(&ds).Error
	if err != nil {
		return nil, classify(fmt.Sprintf("dataset %q", entryID), err)
	}
	return &ds, nil
}

// Counts is the number of rows per ingestion-written table.
type Counts struct {
	Sources             int64
	GeographicLocations int64
	Datasets            int64
	DatasetURIs         int64
	DatasetParameters   int64
}

// Count returns current row counts of the tables ingestion writes to.
func (s *Store) Count(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		model any
		dst   *int64
	}{
		{&Source{}, &c.Sources},
		{&GeographicLocation{}, &c.GeographicLocations},
		{&Dataset{}, &c.Datasets},
		{&DatasetURI{}, &c.DatasetURIs},
		{&DatasetParameter{}, &c.DatasetParameters},
	}
	for _, t := range targets {
		if err := s.db.WithContext(ctx).Model(t.model).Count(t.dst).Error; err != nil {
			return Counts{}, fmt.Errorf("count rows: %w", err)
		}
	}
	return c, nil
}

func platformKey(p vocab.Platform) map[string]any {
	return map[string]any{
		"category":      p.Category,
		"series_entity": p.SeriesEntity,
		"short_name":    p.ShortName,
		"long_name":     p.LongName,
	}
}

func instrumentKey(i vocab.Instrument) map[string]any {
	return map[string]any{
		"category":         i.Category,
		"instrument_class": i.Class,
		"type":             i.Type,
		"subtype":          i.Subtype,
		"short_name":       i.ShortName,
		"long_name":        i.LongName,
	}
}

// classify maps driver errors onto ErrNotFound and ErrDuplicate.
func classify(what string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", what, ErrDuplicate, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
