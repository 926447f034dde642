// Package schema provides relational models of imported sources and their
// mapping to the backbone.
package schema

import "time"

// DataSource stores metadata of an imported dataset.
type DataSource struct {
	// ID is the dataset ID from sources.yaml.
	ID int `gorm:"primaryKey;type:smallint;autoIncrement:false"`

	// UUID is a unique identifier of the resource, nil UUID if unknown.
	UUID string `gorm:"type:uuid;default:'00000000-0000-0000-0000-000000000000'"`

	Title      string `gorm:"type:varchar(255)"`
	TitleShort string `gorm:"type:varchar(50)"`

	// RecordCount is the number of imported source usages.
	RecordCount int

	// BuildID identifies the build that imported the dataset last.
	BuildID string `gorm:"type:uuid"`

	UpdatedAt time.Time `gorm:"type:timestamp without time zone"`
}

// TableName implements gorm's Tabler.
func (DataSource) TableName() string { return "data_sources" }

// SourceUsage is a name usage of a dataset as given by the source.
type SourceUsage struct {
	DataSourceID int    `gorm:"primaryKey;type:smallint;autoIncrement:false"`
	RecordID     string `gorm:"primaryKey;type:varchar(255)"`

	// NameStringID is UUID v5 of ScientificName.
	NameStringID string `gorm:"type:uuid;not null;index"`

	ScientificName  string `gorm:"type:varchar(500);not null"`
	Rank            string `gorm:"type:varchar(50)"`
	TaxonomicStatus string `gorm:"type:varchar(50)"`
	Kingdom         string `gorm:"type:varchar(100)"`

	ParentID   string `gorm:"type:varchar(255)"`
	AcceptedID string `gorm:"type:varchar(255)"`
	BasionymID string `gorm:"type:varchar(255)"`

	// NomStatus is a pipe-delimited list of nomenclatural statuses.
	NomStatus string `gorm:"type:text"`
}

// TableName implements gorm's Tabler.
func (SourceUsage) TableName() string { return "source_usages" }

// NubMapping connects a source usage to its backbone usage.
type NubMapping struct {
	DataSourceID int    `gorm:"primaryKey;type:smallint;autoIncrement:false"`
	RecordID     string `gorm:"primaryKey;type:varchar(255)"`
	NubKey       int    `gorm:"not null;index"`
}

// TableName implements gorm's Tabler.
func (NubMapping) TableName() string { return "nub_mappings" }
