package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/paulmach/orb"
)

// Variable and attribute names defined by the buoy file conventions.
const (
	VarTime      = "time"
	VarLatitude  = "latitude"
	VarLongitude = "longitude"
	VarStationID = "station_id"

	AttrTimeCoverageStart = "time_coverage_start"
	AttrTimeCoverageEnd   = "time_coverage_end"
	AttrTitle             = "title"
	AttrSummary           = "summary"
	AttrEntryID           = "entry_id"
	AttrID                = "id"
	AttrStationName       = "station_name"
	AttrStandardName      = "standard_name"
	AttrUnits             = "units"
)

// nonParameterVars are coordinate and identifier variables that never map to
// a catalog parameter.
var nonParameterVars = map[string]bool{
	VarTime:      true,
	VarLatitude:  true,
	VarLongitude: true,
	VarStationID: true,
}

// timeUnitScale maps the leading token of a CF time unit string to its
// duration. Unrecognised tokens are read as seconds.
var timeUnitScale = map[string]time.Duration{
	"seconds": time.Second, "second": time.Second, "secs": time.Second, "sec": time.Second, "s": time.Second,
	"minutes": time.Minute, "minute": time.Minute, "mins": time.Minute, "min": time.Minute,
	"hours": time.Hour, "hour": time.Hour, "hrs": time.Hour, "hr": time.Hour, "h": time.Hour,
	"days": day, "day": day, "d": day,
}

// TimeCoverage returns the start and end of the file's time coverage.
// Non-empty time_coverage_start/time_coverage_end attributes take precedence,
// each bound independently; otherwise the bound is derived from the first or
// last sample of the time variable.
func TimeCoverage(f File) (time.Time, time.Time, error) {
	var samples *timeSamples

	bound := func(attr string, pick func(*timeSamples) (time.Time, error)) (time.Time, error) {
		if v, ok := nonEmptyAttribute(f, attr); ok {
			t, err := ParseTimestamp(v)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse %s: %w", attr, err)
			}
			return t, nil
		}
		if samples == nil {
			s, err := loadTimeSamples(f)
			if err != nil {
				return time.Time{}, err
			}
			samples = s
		}
		return pick(samples)
	}

	start, err := bound(AttrTimeCoverageStart, (*timeSamples).first)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := bound(AttrTimeCoverageEnd, (*timeSamples).last)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// ParseTimeUnits splits a CF time unit string such as
// "seconds since 2019-07-01T00:00:00" into the offset unit and the reference
// timestamp. The reference timestamp is the third whitespace separated token.
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	fields := strings.Fields(units)
	if len(fields) < 3 {
		return 0, time.Time{}, fmt.Errorf("time units %q: expected \"<unit> since <timestamp>\"", units)
	}

	scale, ok := timeUnitScale[strings.ToLower(fields[0])]
	if !ok {
		scale = time.Second
	}

	ref, err := ParseTimestamp(fields[2])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("time units %q: %w", units, err)
	}
	return scale, ref, nil
}

// ParseTimestamp parses a free-form timestamp. Timestamps without a zone are
// read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

type timeSamples struct {
	scale  time.Duration
	ref    time.Time
	values []float64
}

func loadTimeSamples(f File) (*timeSamples, error) {
	v, err := requireVariable(f, VarTime)
	if err != nil {
		return nil, err
	}
	units, ok := v.Attribute(AttrUnits)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", VarTime, AttrUnits, ErrMissingAttribute)
	}
	scale, ref, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	values, err := v.Float64s()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", VarTime, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("variable %s has no samples", VarTime)
	}
	return &timeSamples{scale: scale, ref: ref, values: values}, nil
}

func (s *timeSamples) first() (time.Time, error) { return s.at(0) }

func (s *timeSamples) last() (time.Time, error) { return s.at(len(s.values) - 1) }

func (s *timeSamples) at(i int) (time.Time, error) {
	v := s.values[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, fmt.Errorf("%s sample %d is not finite", VarTime, i)
	}
	t, err := addOffset(s.ref, v, s.scale)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s sample %d: %w", VarTime, i, err)
	}
	return t, nil
}

const day = 24 * time.Hour

// maxOffsetDays bounds time offsets to roughly 100,000 years.
const maxOffsetDays = 36_500_000

// addOffset adds v units of scale to ref. Whole days go through AddDate, so
// offsets beyond the range of time.Duration (about 292 years) stay exact.
func addOffset(ref time.Time, v float64, scale time.Duration) (time.Time, error) {
	days := v * float64(scale) / float64(day)
	if math.Abs(days) > maxOffsetDays {
		return time.Time{}, fmt.Errorf("offset %g x %s is out of range", v, scale)
	}
	whole := math.Floor(days)
	rest := time.Duration(math.Round((days - whole) * float64(day)))
	return ref.AddDate(0, 0, int(whole)).Add(rest), nil
}

// Track builds the buoy track from the longitude and latitude variables,
// paired by index in file order.
func Track(f File) (orb.LineString, error) {
	lon, err := readFloat64s(f, VarLongitude)
	if err != nil {
		return nil, err
	}
	lat, err := readFloat64s(f, VarLatitude)
	if err != nil {
		return nil, err
	}
	if len(lon) != len(lat) {
		return nil, fmt.Errorf("track: %d longitudes but %d latitudes", len(lon), len(lat))
	}
	if len(lon) < 2 {
		return nil, fmt.Errorf("track: need at least 2 positions, got %d", len(lon))
	}

	ls := make(orb.LineString, len(lon))
	for i := range lon {
		ls[i] = orb.Point{lon[i], lat[i]}
	}
	return ls, nil
}

// Title returns the title attribute verbatim.
func Title(f Attributes) (string, error) {
	title, ok := f.Attribute(AttrTitle)
	if !ok {
		return "", fmt.Errorf("%s: %w", AttrTitle, ErrMissingAttribute)
	}
	return title, nil
}

// Summary returns the summary attribute, or title when the file has none. A
// present summary is kept even when blank.
func Summary(f Attributes, title string) string {
	if s, ok := f.Attribute(AttrSummary); ok {
		return s
	}
	return title
}

// EntryIDSpec is the outcome of the entry identifier chain: either an explicit
// identifier or a station prefix that still needs a numeric suffix.
type EntryIDSpec struct {
	Explicit string
	Prefix   string
}

// Derived reports whether the identifier must be completed with a suffix.
func (s EntryIDSpec) Derived() bool { return s.Explicit == "" }

// WithSuffix returns the identifier for the given counter. Explicit
// identifiers ignore the counter.
func (s EntryIDSpec) WithSuffix(n int) string {
	if !s.Derived() {
		return s.Explicit
	}
	return s.Prefix + strconv.Itoa(n)
}

// entryIDExtractor yields an identifier spec when its source attribute is
// present. A present attribute that cannot form an identifier is an error,
// not a reason to try the next source.
type entryIDExtractor func(Attributes) (EntryIDSpec, bool, error)

// entryIDChain is consulted in order; the first present attribute wins.
var entryIDChain = []entryIDExtractor{
	explicitEntryID(AttrEntryID),
	explicitEntryID(AttrID),
	stationEntryID,
}

func explicitEntryID(attr string) entryIDExtractor {
	return func(f Attributes) (EntryIDSpec, bool, error) {
		v, ok := f.Attribute(attr)
		if !ok {
			return EntryIDSpec{}, false, nil
		}
		if strings.TrimSpace(v) == "" {
			return EntryIDSpec{}, true, fmt.Errorf("%s is blank: %w", attr, ErrNoEntryID)
		}
		return EntryIDSpec{Explicit: v}, true, nil
	}
}

func stationEntryID(f Attributes) (EntryIDSpec, bool, error) {
	name, ok := f.Attribute(AttrStationName)
	if !ok {
		return EntryIDSpec{}, false, nil
	}
	prefix := StationPrefix(name)
	if strings.TrimSpace(prefix) == "" {
		return EntryIDSpec{}, true, fmt.Errorf("%s is blank: %w", AttrStationName, ErrNoEntryID)
	}
	return EntryIDSpec{Prefix: prefix}, true, nil
}

// EntryID runs the entry_id, id, station_name chain.
func EntryID(f Attributes) (EntryIDSpec, error) {
	for _, extract := range entryIDChain {
		spec, ok, err := extract(f)
		if err != nil {
			return EntryIDSpec{}, err
		}
		if ok {
			return spec, nil
		}
	}
	return EntryIDSpec{}, ErrNoEntryID
}

// StationPrefix removes spaces from a station name.
func StationPrefix(stationName string) string {
	return strings.ReplaceAll(stationName, " ", "")
}

// NextSuffix returns one more than the highest numeric suffix among existing
// identifiers that start with prefix, or 1 when there is none. Identifiers
// whose remainder is not a positive integer are ignored.
func NextSuffix(prefix string, existing []string) int {
	highest := 0
	for _, id := range existing {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok || rest == "" {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			continue
		}
		highest = max(highest, n)
	}
	return highest + 1
}

// ParameterCandidate is a measured variable and its CF standard name.
type ParameterCandidate struct {
	Variable     string
	StandardName string
}

// ParameterCandidates lists, in file order, the variables that carry a
// standard_name attribute, excluding time, position and station id.
func ParameterCandidates(f File) ([]ParameterCandidate, error) {
	var out []ParameterCandidate
	for _, name := range f.VariableNames() {
		if nonParameterVars[name] {
			continue
		}
		v, err := f.Variable(name)
		if err != nil {
			return nil, fmt.Errorf("read variable %s: %w", name, err)
		}
		std, ok := v.Attribute(AttrStandardName)
		if !ok {
			continue
		}
		out = append(out, ParameterCandidate{Variable: name, StandardName: std})
	}
	return out, nil
}

func nonEmptyAttribute(f Attributes, name string) (string, bool) {
	v, ok := f.Attribute(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func requireVariable(f File, name string) (Variable, error) {
	v, err := f.Variable(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingVariable)
	}
	return v, nil
}

func readFloat64s(f File, name string) ([]float64, error) {
	v, err := requireVariable(f, name)
	if err != nil {
		return nil, err
	}
	values, err := v.Float64s()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return values, nil
}
