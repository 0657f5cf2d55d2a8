package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ProcessingStage identifies one derivation stage of the ingestion pipeline.
type ProcessingStage string

const (
	StageOCR         ProcessingStage = "ocr"
	StageDescription ProcessingStage = "description"
	StageEmbedding   ProcessingStage = "embedding"
)

// Vector is a fixed-length embedding stored as JSON in the database.
type Vector []float32

// Value implements the driver.Valuer interface for database serialization.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Vector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, v)
}

// StageList is a custom type for storing degraded stage names as JSON.
type StageList []ProcessingStage

// Value implements the driver.Valuer interface for database serialization.
func (s StageList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (s *StageList) Scan(value interface{}) error {
	if value == nil {
		*s = StageList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StageList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, s)
}

// Contains reports whether the stage is recorded as degraded.
func (s StageList) Contains(stage ProcessingStage) bool {
	for _, item := range s {
		if item == stage {
			return true
		}
	}
	return false
}

// Screenshot represents one uploaded screenshot and its derived content.
// A record is created as soon as the file is accepted and mutated exactly
// once, when all three derivation stages (OCR, description, embedding) have
// run. Processed implies a non-empty embedding; OCR text and description may
// be empty on partial extraction failure.
type Screenshot struct {
	ID                string    `gorm:"type:text;primaryKey" json:"id"`
	Filename          string    `gorm:"type:text;not null" json:"filename"`
	StorageKey        string    `gorm:"type:text;not null" json:"storage_key"`
	FileSize          int64     `json:"file_size"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	Format            string    `json:"format"`
	Processed         bool      `gorm:"index:idx_screenshots_processed" json:"processed"`
	OCRText           string    `gorm:"type:text" json:"ocr_text"`
	VisualDescription string    `gorm:"type:text" json:"visual_description"`
	Embedding         Vector    `gorm:"type:text" json:"-"`
	EmbeddingModel    string    `gorm:"type:text" json:"embedding_model,omitempty"`
	DegradedStages    StageList `gorm:"type:text" json:"degraded_stages,omitempty"`
	UploadedAt        time.Time `gorm:"index:idx_screenshots_uploaded" json:"uploaded_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for Screenshot.
func (Screenshot) TableName() string {
	return "screenshots"
}

// Searchable reports whether the record can participate in ranking.
// Processed records without an embedding should not occur, but they are
// excluded rather than scored as zero.
func (s *Screenshot) Searchable() bool {
	return s.Processed && len(s.Embedding) > 0
}
