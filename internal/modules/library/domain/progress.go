package domain

// RawProgressEntry is one progress record as stored by the backend. Different
// backend versions used different field names, so every known spelling is kept
// and the reading normalizer resolves them with a fixed precedence. Nil means
// the field was absent (or null) in the payload.
type RawProgressEntry struct {
	LegacyID *string `json:"_id,omitempty"`
	ID       *string `json:"id,omitempty"`

	StartPage  *int `json:"startPage,omitempty"`
	FinishPage *int `json:"finishPage,omitempty"`

	StartTime        *string `json:"startTime,omitempty"`
	StartReading     *string `json:"startReading,omitempty"`
	StartReadingTime *string `json:"startReadingTime,omitempty"`

	FinishTime        *string `json:"finishTime,omitempty"`
	FinishReading     *string `json:"finishReading,omitempty"`
	FinishReadingTime *string `json:"finishReadingTime,omitempty"`

	ReadingTimeMinutes *float64 `json:"readingTimeMinutes,omitempty"`
	ReadingTime        *float64 `json:"readingTime,omitempty"`

	Speed        *float64 `json:"speed,omitempty"`
	ReadingSpeed *float64 `json:"readingSpeed,omitempty"`

	Status *string `json:"status,omitempty"`
}
