// Package vocab is the controlled vocabulary lookup for platforms,
// instruments and the other reference rows of the catalog. The table is a
// GCMD keyword subset embedded at build time.
package vocab

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var embedded []byte

// ErrUnknownKeyword is returned when no entry matches a keyword.
var ErrUnknownKeyword = errors.New("unknown vocabulary keyword")

// Platform is a GCMD platform keyword.
type Platform struct {
	Category     string `yaml:"category"`
	SeriesEntity string `yaml:"series_entity"`
	ShortName    string `yaml:"short_name"`
	LongName     string `yaml:"long_name"`
}

func (p Platform) fields() []string {
	return []string{p.Category, p.SeriesEntity, p.ShortName, p.LongName}
}

// Instrument is a GCMD instrument keyword.
type Instrument struct {
	Category  string `yaml:"category"`
	Class     string `yaml:"class"`
	Type      string `yaml:"type"`
	Subtype   string `yaml:"subtype"`
	ShortName string `yaml:"short_name"`
	LongName  string `yaml:"long_name"`
}

func (i Instrument) fields() []string {
	return []string{i.Category, i.Class, i.Type, i.Subtype, i.ShortName, i.LongName}
}

// DataCenter is a GCMD data center keyword.
type DataCenter struct {
	BucketLevel0  string `yaml:"bucket_level0"`
	BucketLevel1  string `yaml:"bucket_level1"`
	BucketLevel2  string `yaml:"bucket_level2"`
	BucketLevel3  string `yaml:"bucket_level3"`
	ShortName     string `yaml:"short_name"`
	LongName      string `yaml:"long_name"`
	DataCenterURL string `yaml:"data_center_url"`
}

// Parameter is a CF standard name entry.
type Parameter struct {
	StandardName string `yaml:"standard_name"`
	ShortName    string `yaml:"short_name"`
	Units        string `yaml:"units"`
}

// Vocabulary holds the keyword tables.
type Vocabulary struct {
	Platforms          []Platform   `yaml:"platforms"`
	Instruments        []Instrument `yaml:"instruments"`
	DataCenters        []DataCenter `yaml:"data_centers"`
	ISOTopicCategories []string     `yaml:"iso_topic_categories"`
	Parameters         []Parameter  `yaml:"parameters"`
}

// Default returns the embedded vocabulary.
func Default() (*Vocabulary, error) {
	return Parse(embedded)
}

// Parse decodes a YAML vocabulary table. Unknown keys are rejected.
func Parse(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	return &v, nil
}

// GetPlatform returns the first platform with any field equal to keyword,
// ignoring case.
func (v *Vocabulary) GetPlatform(keyword string) (Platform, error) {
	for _, p := range v.Platforms {
		if matches(keyword, p.fields()) {
			return p, nil
		}
	}
	return Platform{}, fmt.Errorf("platform %q: %w", keyword, ErrUnknownKeyword)
}

// GetInstrument returns the first instrument with any field equal to keyword,
// ignoring case.
func (v *Vocabulary) GetInstrument(keyword string) (Instrument, error) {
	for _, i := range v.Instruments {
		if matches(keyword, i.fields()) {
			return i, nil
		}
	}
	return Instrument{}, fmt.Errorf("instrument %q: %w", keyword, ErrUnknownKeyword)
}

func matches(keyword string, fields []string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}
	for _, f := range fields {
		if strings.EqualFold(f, keyword) {
			return true
		}
	}
	return false
}
