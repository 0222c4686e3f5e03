package journal

import (
	"encoding/json"
	"time"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Tier      string
}

// Generation is one recorded call to the generation service.
type Generation struct {
	ID          string
	SessionID   string
	Timestamp   time.Time
	Tier        string
	Model       string
	Mode        string
	Prompt      string
	AspectRatio string
	Width       int
	Height      int
	Masked      bool
	Referenced  bool
	Status      string
	Error       string
	Duration    time.Duration
	Metadata    GenerationMetadata
}

type GenerationMetadata struct {
	ImageSize string  `json:"image_size,omitempty"`
	Provider  string  `json:"provider,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
	MIMEType  string  `json:"mime_type,omitempty"`
}

func (m *GenerationMetadata) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

func ParseGenerationMetadata(data string) GenerationMetadata {
	var m GenerationMetadata
	if data != "" {
		json.Unmarshal([]byte(data), &m)
	}
	return m
}

type CostEntry struct {
	GenerationID string
	SessionID    string
	Provider     string
	Model        string
	Cost         float64
	ImageCount   int
	Timestamp    time.Time
}

type CostSummary struct {
	TotalCost  float64
	ImageCount int
	EntryCount int
}

type ModelCostSummary struct {
	Model      string
	TotalCost  float64
	ImageCount int
}

func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
