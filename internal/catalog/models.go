package catalog

import "time"

// Platform is a pre-seeded GCMD platform row.
type Platform struct {
	ID           uint   `gorm:"primaryKey"`
	Category     string `gorm:"size:100;not null;uniqueIndex:idx_platform_keyword"`
	SeriesEntity string `gorm:"size:255;not null;uniqueIndex:idx_platform_keyword"`
	ShortName    string `gorm:"size:255;not null;uniqueIndex:idx_platform_keyword"`
	LongName     string `gorm:"size:255;not null;uniqueIndex:idx_platform_keyword"`
}

func (Platform) TableName() string { return "platforms" }

// Instrument is a pre-seeded GCMD instrument row.
type Instrument struct {
	ID        uint   `gorm:"primaryKey"`
	Category  string `gorm:"size:100;not null;uniqueIndex:idx_instrument_keyword"`
	Class     string `gorm:"column:instrument_class;size:100;not null;uniqueIndex:idx_instrument_keyword"`
	Type      string `gorm:"size:100;not null;uniqueIndex:idx_instrument_keyword"`
	Subtype   string `gorm:"size:100;not null;uniqueIndex:idx_instrument_keyword"`
	ShortName string `gorm:"size:255;not null;uniqueIndex:idx_instrument_keyword"`
	LongName  string `gorm:"size:255;not null;uniqueIndex:idx_instrument_keyword"`
}

func (Instrument) TableName() string { return "instruments" }

// DataCenter is a pre-seeded GCMD data center row.
type DataCenter struct {
	ID            uint   `gorm:"primaryKey"`
	BucketLevel0  string `gorm:"size:100"`
	BucketLevel1  string `gorm:"size:100"`
	BucketLevel2  string `gorm:"size:100"`
	BucketLevel3  string `gorm:"size:100"`
	ShortName     string `gorm:"size:100;not null;uniqueIndex"`
	LongName      string `gorm:"size:250"`
	DataCenterURL string `gorm:"size:250"`
}

func (DataCenter) TableName() string { return "data_centers" }

// ISOTopicCategory is a pre-seeded ISO 19115 topic category.
type ISOTopicCategory struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;not null;uniqueIndex"`
}

func (ISOTopicCategory) TableName() string { return "iso_topic_categories" }

// Parameter is a pre-seeded physical quantity identified by CF standard name.
type Parameter struct {
	ID           uint   `gorm:"primaryKey"`
	StandardName string `gorm:"size:300;not null;index"`
	ShortName    string `gorm:"size:30"`
	Units        string `gorm:"size:10"`
}

func (Parameter) TableName() string { return "parameters" }

// Source pairs a platform with an instrument. Rows are shared by all
// datasets with the same pairing.
type Source struct {
	ID           uint        `gorm:"primaryKey"`
	PlatformID   uint        `gorm:"not null;uniqueIndex:idx_source_pair"`
	Platform     *Platform   `gorm:"constraint:OnDelete:RESTRICT"`
	InstrumentID uint        `gorm:"not null;uniqueIndex:idx_source_pair"`
	Instrument   *Instrument `gorm:"constraint:OnDelete:RESTRICT"`
	Specs        string      `gorm:"type:text"`
}

func (Source) TableName() string { return "sources" }

// GeographicLocation stores a geometry as WKT. GeometryHash, the SHA-256 of
// the WKT, carries the uniqueness constraint so long tracks stay indexable.
type GeographicLocation struct {
	ID           uint   `gorm:"primaryKey"`
	Geometry     string `gorm:"type:text;not null"`
	GeometryHash string `gorm:"size:64;not null;uniqueIndex"`
	PlaceName    string `gorm:"size:255"`
}

func (GeographicLocation) TableName() string { return "geographic_locations" }

// Dataset is one ingested file's catalog entry.
type Dataset struct {
	ID                   uint                `gorm:"primaryKey"`
	EntryID              string              `gorm:"size:80;not null;uniqueIndex"`
	EntryTitle           string              `gorm:"size:220"`
	Summary              string              `gorm:"type:text"`
	ISOTopicCategoryID   uint                `gorm:"not null"`
	ISOTopicCategory     *ISOTopicCategory   `gorm:"constraint:OnDelete:RESTRICT"`
	DataCenterID         uint                `gorm:"not null"`
	DataCenter           *DataCenter         `gorm:"constraint:OnDelete:RESTRICT"`
	TimeCoverageStart    time.Time           `gorm:"index"`
	TimeCoverageEnd      time.Time           `gorm:"index"`
	SourceID             uint                `gorm:"not null"`
	Source               *Source             `gorm:"constraint:OnDelete:RESTRICT"`
	GeographicLocationID uint                `gorm:"not null"`
	GeographicLocation   *GeographicLocation `gorm:"constraint:OnDelete:RESTRICT"`
	CreatedAt            time.Time           `gorm:"autoCreateTime"`
}

func (Dataset) TableName() string { return "datasets" }

// DatasetURI name and service values.
const (
	FileServiceName = "fileService"
	ServiceLocal    = "local"
	ServiceHTTP     = "HTTPServer"
)

// DatasetURI maps a URI to its dataset. The URI is the ingestion idempotency
// key.
type DatasetURI struct {
	ID        uint     `gorm:"primaryKey"`
	URI       string   `gorm:"column:uri;size:500;not null;uniqueIndex"`
	Name      string   `gorm:"size:20"`
	Service   string   `gorm:"size:20"`
	DatasetID uint     `gorm:"not null;index"`
	Dataset   *Dataset `gorm:"constraint:OnDelete:CASCADE"`
}

func (DatasetURI) TableName() string { return "dataset_uris" }

// DatasetParameter joins a dataset to a measured parameter.
type DatasetParameter struct {
	ID          uint       `gorm:"primaryKey"`
	DatasetID   uint       `gorm:"not null;index"`
	Dataset     *Dataset   `gorm:"constraint:OnDelete:CASCADE"`
	ParameterID uint       `gorm:"not null;index"`
	Parameter   *Parameter `gorm:"constraint:OnDelete:RESTRICT"`
}

func (DatasetParameter) TableName() string { return "dataset_parameters" }

// allModels lists the schema in migration order.
var allModels = []any{
	&Platform{},
	&Instrument{},
	&DataCenter{},
	&ISOTopicCategory{},
	&Parameter{},
	&Source{},
	&GeographicLocation{},
	&Dataset{},
	&DatasetURI{},
	&DatasetParameter{},
}
