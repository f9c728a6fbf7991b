package in

import (
	"context"

	"readjourney/internal/modules/reading/dto"
)

type Usecase interface {
	Progress(ctx context.Context, bookID string) (dto.ProgressOutput, error)
	StartSession(ctx context.Context, input dto.StartSessionInput) (dto.ProgressOutput, error)
	FinishSession(ctx context.Context, input dto.FinishSessionInput) (dto.FinishOutput, error)
	DeleteSession(ctx context.Context, input dto.DeleteSessionInput) (dto.ProgressOutput, error)
	ExportDiary(ctx context.Context, bookID string) (dto.DiaryOutput, error)
}
