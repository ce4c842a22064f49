// Package ingest registers MET Norway buoy netCDF files in the catalog.
//
// An Ingester turns one file URI into a Dataset with its Source,
// GeographicLocation, DatasetURI and DatasetParameter rows. Ingestion is
// idempotent by exact URI string: a URI that is already catalogued returns
// the stored Dataset without reading the file.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/buoy-ingest-service/internal/catalog"
	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
	"github.com/couchcryptid/buoy-ingest-service/internal/observability"
	"github.com/couchcryptid/buoy-ingest-service/internal/vocab"
)

// Fixed catalog references for buoy datasets.
const (
	PlatformKeyword    = "buoys"
	InstrumentKeyword  = "in situ/laboratory instruments"
	DataCenterName     = "NO/MET"
	ISOTopicCategory   = "Climatology/Meteorology/Atmosphere"
	FillMismatchSuffix = "#fillmismatch"
)

// maxEntryIDAttempts bounds recomputation of a derived entry id that lost an
// insert race.
const maxEntryIDAttempts = 5

// entrySuffixer proposes the next numeric suffix for a derived entry id.
type entrySuffixer interface {
	NextEntrySuffix(ctx context.Context, prefix string) (int, error)
}

// errURIConflict marks a DatasetURI insert that hit the uri unique index.
var errURIConflict = errors.New("uri already catalogued")

// Ingester ingests buoy files into the catalog.
type Ingester struct {
	store    *catalog.Store
	suffixer entrySuffixer
	vocab    *vocab.Vocabulary
	opener   domain.Opener
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates an Ingester. Pass a nil geocoder to store locations without a
// place name.
func New(store *catalog.Store, v *vocab.Vocabulary, opener domain.Opener, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *Ingester {
	return &Ingester{
		store:    store,
		suffixer: store,
		vocab:    v,
		opener:   opener,
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
	}
}

// GetOrCreate returns the Dataset for uri, ingesting the file when the URI is
// not yet catalogued. created reports whether this call wrote the Dataset.
func (in *Ingester) GetOrCreate(ctx context.Context, uri string) (*catalog.Dataset, bool, error) {
	start := time.Now()
	defer func() { in.metrics.IngestDuration.Observe(time.Since(start).Seconds()) }()

	logger := in.logger.With("uri", uri)

	existing, err := in.store.DatasetByURI(ctx, uri)
	switch {
	case err == nil:
		logger.Info("already ingested", "entry_id", existing.EntryID)
		in.metrics.DatasetsSkipped.Inc()
		return existing, false, nil
	case !errors.Is(err, catalog.ErrNotFound):
		return nil, false, fmt.Errorf("look up dataset uri: %w", err)
	}

	source, err := in.resolveSource(ctx)
	if err != nil {
		return nil, false, err
	}

	f, err := in.open(ctx, uri, logger)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("close file failed", "error", cerr)
		}
	}()

	ds, spec, err := in.describe(ctx, f, logger)
	if err != nil {
		return nil, false, err
	}
	ds.SourceID = source.ID

	params, err := in.matchParameters(ctx, f, logger)
	if err != nil {
		return nil, false, err
	}

	ds, created, err := in.persist(ctx, uri, ds, spec, params)
	if err != nil {
		return nil, false, err
	}
	if created {
		in.metrics.DatasetsIngested.Inc()
		logger.Info("dataset ingested",
			"entry_id", ds.EntryID,
			"parameters", len(params),
			"time_coverage_start", ds.TimeCoverageStart,
			"time_coverage_end", ds.TimeCoverageEnd,
		)
	} else {
		in.metrics.DatasetsSkipped.Inc()
		logger.Info("already ingested by a concurrent writer", "entry_id", ds.EntryID)
	}
	return ds, created, nil
}

// Ingest runs GetOrCreate and reports the outcome as an IngestedEvent.
func (in *Ingester) Ingest(ctx context.Context, uri string) (domain.IngestedEvent, error) {
	ds, created, err := in.GetOrCreate(ctx, uri)
	if err != nil {
		return domain.IngestedEvent{}, err
	}

	full, err := in.store.DatasetByEntryID(ctx, ds.EntryID)
	if err != nil {
		return domain.IngestedEvent{}, fmt.Errorf("load dataset %q: %w", ds.EntryID, err)
	}
	params, err := in.store.DatasetParameters(ctx, full.ID)
	if err != nil {
		return domain.IngestedEvent{}, err
	}

	event := domain.IngestedEvent{
		URI:               uri,
		DatasetID:         full.ID,
		EntryID:           full.EntryID,
		EntryTitle:        full.EntryTitle,
		Created:           created,
		TimeCoverageStart: full.TimeCoverageStart.UTC(),
		TimeCoverageEnd:   full.TimeCoverageEnd.UTC(),
	}
	for _, p := range params {
		event.Parameters = append(event.Parameters, p.StandardName)
	}
	if full.GeographicLocation != nil {
		event.PlaceName = full.GeographicLocation.PlaceName
	}
	return event.Stamp(), nil
}

// resolveSource maps the buoy platform and generic in situ instrument to
// their catalog rows and returns the shared Source pairing them.
func (in *Ingester) resolveSource(ctx context.Context) (*catalog.Source, error) {
	pk, err := in.vocab.GetPlatform(PlatformKeyword)
	if err != nil {
		return nil, err
	}
	ik, err := in.vocab.GetInstrument(InstrumentKeyword)
	if err != nil {
		return nil, err
	}

	platform, err := in.store.GetPlatform(ctx, pk)
	if err != nil {
		return nil, err
	}
	instrument, err := in.store.GetInstrument(ctx, ik)
	if err != nil {
		return nil, err
	}
	return in.store.GetOrCreateSource(ctx, platform.ID, instrument.ID)
}

// open opens uri, retrying once with the fill-mismatch suffix when the first
// attempt fails at the I/O level.
func (in *Ingester) open(ctx context.Context, uri string, logger *slog.Logger) (domain.File, error) {
	f, err := in.opener.Open(ctx, uri)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, domain.ErrOpen) || ctx.Err() != nil {
		return nil, err
	}

	logger.Warn("open failed, retrying with fill mismatch", "error", err)
	in.metrics.FillMismatchRetries.Inc()
	f, err = in.opener.Open(ctx, uri+FillMismatchSuffix)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// describe extracts the dataset fields held in the file and resolves the
// location and fixed reference rows. The entry id is left to persist.
func (in *Ingester) describe(ctx context.Context, f domain.File, logger *slog.Logger) (*catalog.Dataset, domain.EntryIDSpec, error) {
	start, end, err := domain.TimeCoverage(f)
	if err != nil {
		return nil, domain.EntryIDSpec{}, fmt.Errorf("time coverage: %w", err)
	}

	track, err := domain.Track(f)
	if err != nil {
		return nil, domain.EntryIDSpec{}, err
	}
	placeName := func() string {
		return domain.TrackPlaceName(ctx, track, in.geocoder, logger)
	}
	location, _, err := in.store.GetOrCreateLocation(ctx, track, placeName)
	if err != nil {
		return nil, domain.EntryIDSpec{}, err
	}

	title, err := domain.Title(f)
	if err != nil {
		return nil, domain.EntryIDSpec{}, err
	}
	summary := domain.Summary(f, title)

	dc, err := in.store.GetDataCenter(ctx, DataCenterName)
	if err != nil {
		return nil, domain.EntryIDSpec{}, err
	}
	iso, err := in.store.GetISOTopicCategory(ctx, ISOTopicCategory)
	if err != nil {
		return nil, domain.EntryIDSpec{}, err
	}

	spec, err := domain.EntryID(f)
	if err != nil {
		return nil, domain.EntryIDSpec{}, err
	}

	return &catalog.Dataset{
		EntryTitle:           title,
		Summary:              summary,
		ISOTopicCategoryID:   iso.ID,
		DataCenterID:         dc.ID,
		TimeCoverageStart:    start,
		TimeCoverageEnd:      end,
		GeographicLocationID: location.ID,
	}, spec, nil
}

// matchParameters resolves each candidate variable's standard name to a
// Parameter. Unknown standard names are logged and skipped.
func (in *Ingester) matchParameters(ctx context.Context, f domain.File, logger *slog.Logger) ([]*catalog.Parameter, error) {
	candidates, err := domain.ParameterCandidates(f)
	if err != nil {
		return nil, err
	}

	params := make([]*catalog.Parameter, 0, len(candidates))
	for _, c := range candidates {
		p, err := in.store.ParameterByStandardName(ctx, c.StandardName)
		if errors.Is(err, catalog.ErrNotFound) {
			logger.Warn("unknown parameter, skipping variable",
				"variable", c.Variable,
				"standard_name", c.StandardName,
			)
			in.metrics.UnmatchedParameters.WithLabelValues(c.StandardName).Inc()
			continue
		}
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// persist writes the Dataset, its DatasetURI and DatasetParameters in one
// transaction. A derived entry id that collides is recomputed; a URI that
// collides resolves to the stored Dataset.
func (in *Ingester) persist(ctx context.Context, uri string, ds *catalog.Dataset, spec domain.EntryIDSpec, params []*catalog.Parameter) (*catalog.Dataset, bool, error) {
	for attempt := 1; attempt <= maxEntryIDAttempts; attempt++ {
		entryID, err := in.entryID(ctx, spec)
		if err != nil {
			return nil, false, err
		}
		ds.ID = 0
		ds.EntryID = entryID

		err = in.store.Transaction(ctx, func(tx *catalog.Store) error {
			return insertDataset(ctx, tx, uri, ds, params)
		})
		if err == nil {
			return ds, true, nil
		}
		if !errors.Is(err, catalog.ErrDuplicate) {
			return nil, false, err
		}

		// Whichever index was hit, a concurrent ingest of the same URI wins.
		if existing, lookupErr := in.store.DatasetByURI(ctx, uri); lookupErr == nil {
			return existing, false, nil
		}
		if errors.Is(err, errURIConflict) {
			return nil, false, err
		}
		if !spec.Derived() {
			return nil, false, fmt.Errorf("entry id %q is already used by another dataset: %w", entryID, err)
		}
		in.logger.Warn("entry id taken, recomputing",
			"uri", uri,
			"entry_id", entryID,
			"attempt", attempt,
		)
	}
	return nil, false, fmt.Errorf("allocate entry id for prefix %q: gave up after %d attempts", spec.Prefix, maxEntryIDAttempts)
}

func (in *Ingester) entryID(ctx context.Context, spec domain.EntryIDSpec) (string, error) {
	if !spec.Derived() {
		return spec.Explicit, nil
	}
	n, err := in.suffixer.NextEntrySuffix(ctx, spec.Prefix)
	if err != nil {
		return "", err
	}
	return spec.WithSuffix(n), nil
}

func insertDataset(ctx context.Context, tx *catalog.Store, uri string, ds *catalog.Dataset, params []*catalog.Parameter) error {
	if err := tx.CreateDataset(ctx, ds); err != nil {
		return err
	}

	du := &catalog.DatasetURI{
		URI:       uri,
		Name:      catalog.FileServiceName,
		Service:   uriService(uri),
		DatasetID: ds.ID,
	}
	if err := tx.CreateDatasetURI(ctx, du); err != nil {
		if errors.Is(err, catalog.ErrDuplicate) {
			return fmt.Errorf("%w: %w", errURIConflict, err)
		}
		return err
	}

	for _, p := range params {
		if err := tx.CreateDatasetParameter(ctx, &catalog.DatasetParameter{DatasetID: ds.ID, ParameterID: p.ID}); err != nil {
			return err
		}
	}
	return nil
}

func uriService(uri string) string {
	lower := strings.ToLower(uri)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return catalog.ServiceHTTP
	}
	return catalog.ServiceLocal
}
