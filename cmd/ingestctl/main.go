// Command ingestctl ingests buoy netCDF files into the catalog without Kafka
// and prints one JSON event per URI. With -check it re-reads every ingested
// dataset and verifies the stored rows.
//
// Usage:
//
//	go run ./cmd/ingestctl \
//	  -driver sqlite -dsn catalog.db -seed \
//	  /data/buoys/fauskane_201907.nc \
//	  https://thredds.met.no/thredds/fileServer/obs/buoy/2019/07/fauskane.nc
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/buoy-ingest-service/internal/adapter/mapbox"
	"github.com/couchcryptid/buoy-ingest-service/internal/adapter/netcdf"
	"github.com/couchcryptid/buoy-ingest-service/internal/catalog"
	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
	"github.com/couchcryptid/buoy-ingest-service/internal/ingest"
	"github.com/couchcryptid/buoy-ingest-service/internal/observability"
	"github.com/couchcryptid/buoy-ingest-service/internal/vocab"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	driver := flag.String("driver", catalog.DriverSQLite, "catalog database driver (sqlite or postgres)")
	dsn := flag.String("dsn", "catalog.db", "catalog database DSN or file path")
	seed := flag.Bool("seed", false, "seed the reference vocabulary before ingesting")
	check := flag.Bool("check", false, "verify the stored rows of every ingested dataset")
	timeout := flag.Duration("timeout", 60*time.Second, "download timeout for remote files")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	uris := flag.Args()
	if len(uris) == 0 {
		flag.Usage()
		return fmt.Errorf("no file URIs given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.NewCLILogger(os.Stderr, *logLevel)
	metrics := observability.NewUnregisteredMetrics()

	v, err := vocab.Default()
	if err != nil {
		return err
	}

	store, err := catalog.Open(ctx, *driver, *dsn, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if *seed {
		if err := store.Seed(ctx, v); err != nil {
			return err
		}
	}

	var geocoder domain.Geocoder
	if token := os.Getenv("MAPBOX_TOKEN"); token != "" {
		geocoder = mapbox.NewCachedGeocoder(mapbox.NewClient(token, 5*time.Second, metrics, logger), 100, metrics)
	}

	ingester := ingest.New(store, v, netcdf.NewOpener(*timeout, "", logger), geocoder, logger, metrics)

	enc := json.NewEncoder(os.Stdout)
	var events []domain.IngestedEvent
	failed := 0
	for _, uri := range uris {
		event, err := ingester.Ingest(ctx, uri)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", uri, err)
			continue
		}
		events = append(events, event)
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}

	if *check {
		p := checkEvents(ctx, store, events)
		p.report()
		if !p.passed() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(uris))
	}
	return nil
}

// phase collects the problems found by one verification pass.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func (p *phase) report() {
	if p.passed() {
		fmt.Fprintf(os.Stderr, "PASS %s\n", p.name)
		return
	}
	fmt.Fprintf(os.Stderr, "FAIL %s (%d problems)\n", p.name, len(p.errors))
	for _, e := range p.errors {
		fmt.Fprintf(os.Stderr, "  - %s\n", e)
	}
}

func checkEvents(ctx context.Context, store *catalog.Store, events []domain.IngestedEvent) *phase {
	p := &phase{name: "catalog"}
	for _, e := range events {
		ds, err := store.DatasetByURI(ctx, e.URI)
		if err != nil {
			p.errorf("%s: dataset uri: %v", e.URI, err)
			continue
		}
		if ds.EntryID != e.EntryID {
			p.errorf("%s: entry id %q, event says %q", e.URI, ds.EntryID, e.EntryID)
		}

		full, err := store.DatasetByEntryID(ctx, ds.EntryID)
		if err != nil {
			p.errorf("%s: dataset %q: %v", e.URI, ds.EntryID, err)
			continue
		}
		if full.TimeCoverageEnd.Before(full.TimeCoverageStart) {
			p.errorf("%s: time coverage ends before it starts", e.EntryID)
		}
		if full.Summary == "" {
			p.errorf("%s: empty summary", e.EntryID)
		}
		if full.GeographicLocation == nil {
			p.errorf("%s: no geographic location", e.EntryID)
			continue
		}
		track, err := full.GeographicLocation.Track()
		if err != nil {
			p.errorf("%s: geometry: %v", e.EntryID, err)
		} else if len(track) < 2 {
			p.errorf("%s: track has %d points", e.EntryID, len(track))
		}
	}
	return p
}
