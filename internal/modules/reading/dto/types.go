package dto

type StartSessionInput struct {
	BookID string `form:"book id" validate:"required"`
	Page   int    `form:"page" validate:"gt=0"`
}

type FinishSessionInput struct {
	BookID string `form:"book id" validate:"required"`
	Page   int    `form:"page" validate:"gt=0"`
}

type DeleteSessionInput struct {
	SessionID string `form:"session id" validate:"required"`
	// BookID is derived from SessionID when empty.
	BookID string `form:"book id"`
}

type SessionOutput struct {
	ID                 string
	RemoteID           string
	StartPage          int
	FinishPage         int
	PagesRead          int
	Percent            float64
	StartTime          string
	FinishTime         string
	ReadingTimeMinutes float64
	// Speed is nil when unknown.
	Speed  *float64
	Status string
}

type ProgressOutput struct {
	BookID             string
	Title              string
	Author             string
	TotalPages         int
	Found              bool
	Sessions           []SessionOutput
	TotalPagesRead     int
	CompletionPercent  float64
	TotalReadingTime   float64
	AverageSpeed       float64
	IsCurrentlyReading bool
}

type FinishOutput struct {
	ProgressOutput
	BookCompleted bool
}

type DiaryOutput struct {
	BookID string
	Path   string
}
