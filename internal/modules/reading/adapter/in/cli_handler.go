package in

import (
	"context"

	"readjourney/internal/modules/reading/dto"
	readingin "readjourney/internal/modules/reading/port/in"
)

type CLIHandler struct {
	usecase readingin.Usecase
}

func NewCLIHandler(usecase readingin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Progress(ctx context.Context, bookID string) (dto.ProgressOutput, error) {
	return h.usecase.Progress(ctx, bookID)
}

func (h CLIHandler) Start(ctx context.Context, bookID string, page int) (dto.ProgressOutput, error) {
	return h.usecase.StartSession(ctx, dto.StartSessionInput{BookID: bookID, Page: page})
}

func (h CLIHandler) Finish(ctx context.Context, bookID string, page int) (dto.FinishOutput, error) {
	return h.usecase.FinishSession(ctx, dto.FinishSessionInput{BookID: bookID, Page: page})
}

func (h CLIHandler) Delete(ctx context.Context, sessionID, bookID string) (dto.ProgressOutput, error) {
	return h.usecase.DeleteSession(ctx, dto.DeleteSessionInput{SessionID: sessionID, BookID: bookID})
}

func (h CLIHandler) ExportDiary(ctx context.Context, bookID string) (dto.DiaryOutput, error) {
	return h.usecase.ExportDiary(ctx, bookID)
}
