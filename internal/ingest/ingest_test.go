package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/buoy-ingest-service/internal/adapter/netcdf"
	"github.com/couchcryptid/buoy-ingest-service/internal/catalog"
	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
	"github.com/couchcryptid/buoy-ingest-service/internal/observability"
	"github.com/couchcryptid/buoy-ingest-service/internal/vocab"
)

const (
	fauskaneURI  = "https://thredds.met.no/thredds/fileServer/obs/kystverketbuoy/2019/07/201907_Kystverket-Smartbuoy-Fauskane_Weather-Station-GillWindSensor.nc"
	fauskaneURI2 = "https://thredds.met.no/thredds/fileServer/obs/kystverketbuoy/2019/08/201908_Kystverket-Smartbuoy-Fauskane_Weather-Station-GillWindSensor.nc"
)

type harness struct {
	ingester *Ingester
	store    *catalog.Store
	opener   *netcdf.MemOpener
	metrics  *observability.Metrics
	logs     *bytes.Buffer
}

func newHarness(t *testing.T, opener domain.Opener, geocoder domain.Geocoder, seed bool) *harness {
	t.Helper()
	ctx := context.Background()

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	store, err := catalog.Open(ctx, catalog.DriverSQLite, filepath.Join(t.TempDir(), "catalog.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	v, err := vocab.Default()
	require.NoError(t, err)
	if seed {
		require.NoError(t, store.Seed(ctx, v))
	}

	mem, _ := opener.(*netcdf.MemOpener)
	metrics := observability.NewUnregisteredMetrics()
	return &harness{
		ingester: New(store, v, opener, geocoder, logger, metrics),
		store:    store,
		opener:   mem,
		metrics:  metrics,
		logs:     logs,
	}
}

func newMemHarness(t *testing.T) *harness {
	t.Helper()
	return newHarness(t, netcdf.NewMemOpener(), nil, true)
}

// buoyFile is a Fauskane-like file: three hourly samples from
// 2019-07-01T00:00:00 along a two-segment track.
func buoyFile(attrs map[string]string) *netcdf.MemFile {
	global := map[string]string{
		"title":        "Fauskane weather station",
		"station_name": "Fauskane",
	}
	for k, v := range attrs {
		global[k] = v
	}
	return netcdf.NewMemFile(global).
		AddVariable("time", map[string]string{"units": "seconds since 2019-07-01T00:00:00", "standard_name": "time"}, 0, 3600, 7200).
		AddVariable("latitude", map[string]string{"standard_name": "latitude"}, 60.0, 60.05, 60.1).
		AddVariable("longitude", map[string]string{"standard_name": "longitude"}, 10.0, 10.05, 10.1)
}

func (h *harness) counts(t *testing.T) catalog.Counts {
	t.Helper()
	c, err := h.store.Count(context.Background())
	require.NoError(t, err)
	return c
}

func TestGetOrCreate_NewFile(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(nil))

	ds, created, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, "Fauskane1", ds.EntryID)
	assert.Equal(t, "Fauskane weather station", ds.EntryTitle)
	assert.Equal(t, "Fauskane weather station", ds.Summary, "summary falls back to title")
	assert.Equal(t, time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC), ds.TimeCoverageStart)
	assert.Equal(t, time.Date(2019, 7, 1, 2, 0, 0, 0, time.UTC), ds.TimeCoverageEnd)

	stored, err := h.store.DatasetByEntryID(context.Background(), "Fauskane1")
	require.NoError(t, err)
	assert.Equal(t, "NO/MET", stored.DataCenter.ShortName)
	assert.Equal(t, "Climatology/Meteorology/Atmosphere", stored.ISOTopicCategory.Name)
	assert.Equal(t, "BUOYS", stored.Source.Platform.SeriesEntity)
	assert.Equal(t, "In Situ/Laboratory Instruments", stored.Source.Instrument.Category)

	track, err := stored.GeographicLocation.Track()
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{10.0, 60.0}, {10.05, 60.05}, {10.1, 60.1}}, track)

	assert.Equal(t, catalog.Counts{
		Sources:             1,
		GeographicLocations: 1,
		Datasets:            1,
		DatasetURIs:         1,
	}, h.counts(t))
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.DatasetsIngested), 0)
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(nil))
	ctx := context.Background()

	first, created, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)
	require.True(t, created)
	before := h.counts(t)

	second, created, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Fauskane1", second.EntryID)
	assert.Equal(t, before, h.counts(t), "no rows written on repeat")
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.DatasetsSkipped), 0)
}

func TestGetOrCreate_AlreadyIngestedDoesNotOpenFile(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(nil))
	ctx := context.Background()

	_, _, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)

	// Replacing the file with an unreadable one must not matter.
	h.opener.Register(fauskaneURI, netcdf.NewMemFile(nil))
	_, created, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestGetOrCreate_DerivedEntryIDsCount(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(nil))
	h.opener.Register(fauskaneURI2, buoyFile(nil))
	ctx := context.Background()

	first, created, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)
	require.True(t, created)
	second, created, err := h.ingester.GetOrCreate(ctx, fauskaneURI2)
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, "Fauskane1", first.EntryID)
	assert.Equal(t, "Fauskane2", second.EntryID)
	assert.NotEqual(t, first.ID, second.ID)

	c := h.counts(t)
	assert.Equal(t, int64(2), c.Datasets)
	assert.Equal(t, int64(2), c.DatasetURIs)
	assert.Equal(t, int64(1), c.Sources, "source is shared")
	assert.Equal(t, int64(1), c.GeographicLocations, "identical tracks share a location")
	assert.Equal(t, first.GeographicLocationID, second.GeographicLocationID)
}

func TestGetOrCreate_StationNameSpacesRemoved(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(map[string]string{"station_name": "Fauskane Nord"}))

	ds, _, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
	require.NoError(t, err)
	assert.Equal(t, "FauskaneNord1", ds.EntryID)
}

func TestGetOrCreate_EntryIDChain(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  string
	}{
		{"entry_id wins", map[string]string{"entry_id": "met-buoy-0001", "id": "other"}, "met-buoy-0001"},
		{"id before station name", map[string]string{"id": "kystverket-fauskane"}, "kystverket-fauskane"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMemHarness(t)
			h.opener.Register(fauskaneURI, buoyFile(tt.attrs))

			ds, created, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, tt.want, ds.EntryID)
		})
	}
}

func TestGetOrCreate_NoEntryID(t *testing.T) {
	h := newMemHarness(t)
	f := buoyFile(nil)
	delete(f.Attrs, "station_name")
	h.opener.Register(fauskaneURI, f)

	_, _, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
	require.ErrorIs(t, err, domain.ErrNoEntryID)
	assert.Zero(t, h.counts(t).Datasets)
}

func TestGetOrCreate_ExplicitEntryIDCollision(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(map[string]string{"entry_id": "fauskane"}))
	h.opener.Register(fauskaneURI2, buoyFile(map[string]string{"entry_id": "fauskane"}))
	ctx := context.Background()

	_, _, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)

	_, _, err = h.ingester.GetOrCreate(ctx, fauskaneURI2)
	require.ErrorIs(t, err, catalog.ErrDuplicate)
	assert.Contains(t, err.Error(), `entry id "fauskane"`)

	c := h.counts(t)
	assert.Equal(t, int64(1), c.Datasets)
	assert.Equal(t, int64(1), c.DatasetURIs)
}

func TestGetOrCreate_EmptyEntryIDAttribute(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(map[string]string{"entry_id": ""}))

	_, _, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
	require.ErrorIs(t, err, domain.ErrNoEntryID)
	assert.Zero(t, h.counts(t).Datasets)
}

// suffixFunc adapts a function to entrySuffixer.
type suffixFunc func(ctx context.Context, prefix string) (int, error)

func (f suffixFunc) NextEntrySuffix(ctx context.Context, prefix string) (int, error) {
	return f(ctx, prefix)
}

func TestGetOrCreate_DerivedEntryIDRecomputedAfterCollision(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(nil))
	h.opener.Register(fauskaneURI2, buoyFile(nil))
	ctx := context.Background()

	_, _, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)

	// The first proposal is stale, as if another writer inserted Fauskane1
	// between the lookup and the insert.
	var calls int
	h.ingester.suffixer = suffixFunc(func(ctx context.Context, prefix string) (int, error) {
		calls++
		if calls == 1 {
			return 1, nil
		}
		return h.store.NextEntrySuffix(ctx, prefix)
	})

	ds, created, err := h.ingester.GetOrCreate(ctx, fauskaneURI2)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Fauskane2", ds.EntryID)
	assert.Equal(t, 2, calls)
	assert.Contains(t, h.logs.String(), "entry id taken, recomputing")

	c := h.counts(t)
	assert.Equal(t, int64(2), c.Datasets)
	assert.Equal(t, int64(2), c.DatasetURIs)
}

func TestGetOrCreate_DerivedEntryIDGivesUp(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(nil))
	h.opener.Register(fauskaneURI2, buoyFile(nil))
	ctx := context.Background()

	_, _, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)

	var calls int
	h.ingester.suffixer = suffixFunc(func(context.Context, string) (int, error) {
		calls++
		return 1, nil
	})

	_, _, err = h.ingester.GetOrCreate(ctx, fauskaneURI2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `allocate entry id for prefix "Fauskane": gave up after 5 attempts`)
	assert.Equal(t, maxEntryIDAttempts, calls)

	c := h.counts(t)
	assert.Equal(t, int64(1), c.Datasets)
	assert.Equal(t, int64(1), c.DatasetURIs)
}

func TestGetOrCreate_URIInsertedByConcurrentWriter(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(nil))
	ctx := context.Background()

	other := New(h.store, h.ingester.vocab, h.opener, nil, slog.New(slog.DiscardHandler), observability.NewUnregisteredMetrics())

	// The other writer catalogues the same URI after this ingester has read
	// the file, so the dataset insert succeeds and the uri insert conflicts.
	var otherDS *catalog.Dataset
	h.ingester.suffixer = suffixFunc(func(ctx context.Context, prefix string) (int, error) {
		if otherDS == nil {
			ds, created, err := other.GetOrCreate(ctx, fauskaneURI)
			if err != nil {
				return 0, err
			}
			require.True(t, created)
			otherDS = ds
		}
		return h.store.NextEntrySuffix(ctx, prefix)
	})

	ds, created, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, otherDS)
	assert.Equal(t, otherDS.ID, ds.ID)
	assert.Equal(t, "Fauskane1", ds.EntryID)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.DatasetsSkipped), 0)
	assert.Zero(t, testutil.ToFloat64(h.metrics.DatasetsIngested))

	c := h.counts(t)
	assert.Equal(t, int64(1), c.Datasets, "the losing insert is rolled back")
	assert.Equal(t, int64(1), c.DatasetURIs)
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	h := newMemHarness(t)
	uris := []string{
		fauskaneURI,
		fauskaneURI2,
		"https://thredds.met.no/thredds/fileServer/obs/kystverketbuoy/2019/09/201909_Kystverket-Smartbuoy-Fauskane_Weather-Station-GillWindSensor.nc",
		"https://thredds.met.no/thredds/fileServer/obs/kystverketbuoy/2019/10/201910_Kystverket-Smartbuoy-Fauskane_Weather-Station-GillWindSensor.nc",
	}
	for _, uri := range uris {
		h.opener.Register(uri, buoyFile(nil))
	}

	type result struct {
		uri     string
		entryID string
		created bool
		err     error
	}
	const workers = 8
	results := make([]result, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uri := uris[i%len(uris)]
			ds, created, err := h.ingester.GetOrCreate(context.Background(), uri)
			r := result{uri: uri, created: created, err: err}
			if ds != nil {
				r.entryID = ds.EntryID
			}
			results[i] = r
		}()
	}
	wg.Wait()

	createdPerURI := map[string]int{}
	entryIDsPerURI := map[string]map[string]bool{}
	for _, r := range results {
		require.NoError(t, r.err, r.uri)
		if r.created {
			createdPerURI[r.uri]++
		}
		if entryIDsPerURI[r.uri] == nil {
			entryIDsPerURI[r.uri] = map[string]bool{}
		}
		entryIDsPerURI[r.uri][r.entryID] = true
	}

	allIDs := map[string]bool{}
	for _, uri := range uris {
		assert.Equal(t, 1, createdPerURI[uri], "exactly one writer creates %s", uri)
		require.Len(t, entryIDsPerURI[uri], 1, "every caller sees the same dataset for %s", uri)
		for id := range entryIDsPerURI[uri] {
			assert.False(t, allIDs[id], "entry id %s assigned twice", id)
			allIDs[id] = true
		}
	}
	assert.Len(t, allIDs, len(uris))

	c := h.counts(t)
	assert.Equal(t, int64(len(uris)), c.Datasets)
	assert.Equal(t, int64(len(uris)), c.DatasetURIs)
}

func TestGetOrCreate_TimeCoverageAttributes(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(map[string]string{
		"time_coverage_start": "2019-06-30T12:00:00Z",
		"time_coverage_end":   "",
	}))

	ds, _, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 6, 30, 12, 0, 0, 0, time.UTC), ds.TimeCoverageStart)
	assert.Equal(t, time.Date(2019, 7, 1, 2, 0, 0, 0, time.UTC), ds.TimeCoverageEnd, "empty attribute falls back to the time variable")
}

func TestGetOrCreate_SummaryAttribute(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI, buoyFile(map[string]string{"summary": "Wind and air temperature at Fauskane."}))

	ds, _, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
	require.NoError(t, err)
	assert.Equal(t, "Wind and air temperature at Fauskane.", ds.Summary)
}

func TestGetOrCreate_Parameters(t *testing.T) {
	h := newMemHarness(t)
	f := buoyFile(nil).
		AddVariable("station_id", map[string]string{"standard_name": "platform_id"}, 1, 1, 1).
		AddVariable("wind_speed", map[string]string{"standard_name": "wind_speed", "units": "m s-1"}, 3.1, 2.9, 4.0).
		AddVariable("ice", map[string]string{"standard_name": "sea_ice_thickness"}, 0, 0, 0).
		AddVariable("quality_flag", map[string]string{"long_name": "quality flag"}, 0, 0, 0).
		AddVariable("air_temperature", map[string]string{"standard_name": "air_temperature"}, 285, 286, 287)
	h.opener.Register(fauskaneURI, f)
	ctx := context.Background()

	ds, created, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)
	require.True(t, created)

	params, err := h.store.DatasetParameters(ctx, ds.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.StandardName)
	}
	assert.Equal(t, []string{"wind_speed", "air_temperature"}, names)

	logs := h.logs.String()
	assert.Contains(t, logs, "level=WARN")
	assert.Contains(t, logs, "standard_name=sea_ice_thickness")
	assert.NotContains(t, logs, "standard_name=platform_id", "station_id is never a parameter")
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.UnmatchedParameters.WithLabelValues("sea_ice_thickness")), 0)
}

func TestGetOrCreate_MissingRequiredData(t *testing.T) {
	tests := []struct {
		name    string
		file    func() *netcdf.MemFile
		wantErr error
	}{
		{
			name: "no title",
			file: func() *netcdf.MemFile {
				f := buoyFile(nil)
				delete(f.Attrs, "title")
				return f
			},
			wantErr: domain.ErrMissingAttribute,
		},
		{
			name: "no longitude",
			file: func() *netcdf.MemFile {
				return netcdf.NewMemFile(map[string]string{"title": "t", "station_name": "Fauskane"}).
					AddVariable("time", map[string]string{"units": "seconds since 2019-07-01T00:00:00"}, 0, 60).
					AddVariable("latitude", nil, 60, 61)
			},
			wantErr: domain.ErrMissingVariable,
		},
		{
			name: "no time variable and no attributes",
			file: func() *netcdf.MemFile {
				return netcdf.NewMemFile(map[string]string{"title": "t", "station_name": "Fauskane"}).
					AddVariable("latitude", nil, 60, 61).
					AddVariable("longitude", nil, 10, 11)
			},
			wantErr: domain.ErrMissingVariable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMemHarness(t)
			h.opener.Register(fauskaneURI, tt.file())

			_, _, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, h.counts(t).Datasets)
			assert.Zero(t, h.counts(t).DatasetURIs)
		})
	}
}

func TestGetOrCreate_FillMismatchRetry(t *testing.T) {
	h := newMemHarness(t)
	h.opener.Register(fauskaneURI+FillMismatchSuffix, buoyFile(nil))
	ctx := context.Background()

	ds, created, err := h.ingester.GetOrCreate(ctx, fauskaneURI)
	require.NoError(t, err)
	assert.True(t, created)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.FillMismatchRetries), 0)

	byURI, err := h.store.DatasetByURI(ctx, fauskaneURI)
	require.NoError(t, err, "stored under the requested URI")
	assert.Equal(t, ds.ID, byURI.ID)
}

func TestGetOrCreate_OpenFailsTwice(t *testing.T) {
	h := newMemHarness(t)

	_, _, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
	require.ErrorIs(t, err, domain.ErrOpen)
	assert.Contains(t, err.Error(), FillMismatchSuffix)
	assert.Zero(t, h.counts(t).Datasets)
}

type countingOpener struct {
	calls atomic.Int32
	err   error
}

func (o *countingOpener) Open(context.Context, string) (domain.File, error) {
	o.calls.Add(1)
	return nil, o.err
}

func TestGetOrCreate_DecodeErrorIsNotRetried(t *testing.T) {
	opener := &countingOpener{err: errors.New("not a netcdf file")}
	h := newHarness(t, opener, nil, true)

	_, _, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
	require.Error(t, err)
	assert.Equal(t, int32(1), opener.calls.Load())
}

func TestGetOrCreate_MissingReferenceRows(t *testing.T) {
	h := newHarness(t, netcdf.NewMemOpener(), nil, false)
	h.opener.Register(fauskaneURI, buoyFile(nil))

	_, _, err := h.ingester.GetOrCreate(context.Background(), fauskaneURI)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Contains(t, err.Error(), "platform")
}

type stubGeocoder struct {
	result domain.GeocodingResult
	calls  int
}

func (g *stubGeocoder) ReverseGeocode(context.Context, float64, float64) (domain.GeocodingResult, error) {
	g.calls++
	return g.result, nil
}

func TestIngest_Event(t *testing.T) {
	geocoder := &stubGeocoder{result: domain.GeocodingResult{PlaceName: "Fauskane, Vestland"}}
	h := newHarness(t, netcdf.NewMemOpener(), geocoder, true)
	h.opener.Register(fauskaneURI, buoyFile(nil).
		AddVariable("wind_speed", map[string]string{"standard_name": "wind_speed"}, 1, 2, 3))
	h.opener.Register(fauskaneURI2, buoyFile(nil))
	ctx := context.Background()

	event, err := h.ingester.Ingest(ctx, fauskaneURI)
	require.NoError(t, err)
	assert.Equal(t, fauskaneURI, event.URI)
	assert.Equal(t, "Fauskane1", event.EntryID)
	assert.True(t, event.Created)
	assert.Equal(t, []string{"wind_speed"}, event.Parameters)
	assert.Equal(t, "Fauskane, Vestland", event.PlaceName)
	assert.Equal(t, time.Date(2019, 7, 1, 2, 0, 0, 0, time.UTC), event.TimeCoverageEnd)
	assert.False(t, event.IngestedAt.IsZero())

	again, err := h.ingester.Ingest(ctx, fauskaneURI)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, event.DatasetID, again.DatasetID)

	_, err = h.ingester.Ingest(ctx, fauskaneURI2)
	require.NoError(t, err)
	assert.Equal(t, 1, geocoder.calls, "existing locations are not geocoded again")
}

func TestURIService(t *testing.T) {
	assert.Equal(t, catalog.ServiceHTTP, uriService(fauskaneURI))
	assert.Equal(t, catalog.ServiceLocal, uriService("/data/buoy.nc"))
	assert.Equal(t, catalog.ServiceLocal, uriService("file:///data/buoy.nc"))
}
