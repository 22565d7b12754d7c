package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/batchtrack/batchtrack/internal/platform/validate"
	"github.com/batchtrack/batchtrack/pkg/slug"
	"github.com/batchtrack/batchtrack/pkg/uuid"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (service *Service) ListBatches(context context.Context, filter Filter, limit, offset int) ([]*Batch, int, error) {
	return service.repo.ListBatches(context, filter, limit, offset)
}

func (service *Service) GetBatch(context context.Context, id string) (*Batch, error) {
	return service.repo.GetBatch(context, id)
}

func (service *Service) GetBatchBySlug(context context.Context, batchSlug string) (*Batch, error) {
	return service.repo.GetBatchBySlug(context, batchSlug)
}

func (service *Service) CreateBatch(context context.Context, batch *Batch) error {
	validator := &validate.Validator{}

	validator.Required(FieldName, batch.Name).MaxLen(FieldName, batch.Name, 200)
	if batch.Stage == "" {
		batch.Stage = StageDrying
	}
	validator.OneOf(FieldStage, batch.Stage, Stages...)

	if err := validator.Err(); err != nil {
		return err
	}

	batch.ID = uuid.New()
	batch.Slug = slug.From(batch.Name)
	if batch.StartedAt.IsZero() {
		batch.StartedAt = time.Now()
	}

	if err := service.repo.CreateBatch(context, batch); err != nil {
		return err
	}

	service.logger.Info("batch_created",
		slog.String("batch_id", batch.ID),
		slog.String("name", batch.Name),
	)
	return nil
}

func (service *Service) UpdateBatch(context context.Context, id string, batch *Batch) error {
	batch.ID = id
	validator := &validate.Validator{}

	validator.Required(FieldName, batch.Name).MaxLen(FieldName, batch.Name, 200)
	validator.OneOf(FieldStage, batch.Stage, Stages...)

	if err := validator.Err(); err != nil {
		return err
	}

	batch.Slug = slug.From(batch.Name)

	if err := service.repo.UpdateBatch(context, batch); err != nil {
		return err
	}

	service.logger.Info("batch_updated", slog.String("batch_id", batch.ID))
	return nil
}

func (service *Service) DeleteBatch(context context.Context, id string) error {
	if err := service.repo.DeleteBatch(context, id); err != nil {
		return err
	}

	service.logger.Warn("batch_deleted", slog.String("batch_id", id))
	return nil
}

func (service *Service) ListCuringLogs(context context.Context, batchID string, limit, offset int) ([]*CuringLog, int, error) {
	// Resolve the batch first so a bad ID surfaces as NOT_FOUND.
	if _, err := service.repo.GetBatch(context, batchID); err != nil {
		return nil, 0, err
	}
	return service.repo.ListCuringLogs(context, batchID, limit, offset)
}

func (service *Service) AddCuringLog(context context.Context, batchID string, log *CuringLog) error {
	if _, err := service.repo.GetBatch(context, batchID); err != nil {
		return err
	}

	validator := &validate.Validator{}
	validator.Custom(FieldTemperature, log.TemperatureC < -50 || log.TemperatureC > 100, "must be between -50 and 100")
	validator.Custom(FieldHumidity, log.HumidityPct < 0 || log.HumidityPct > 100, "must be between 0 and 100")

	if err := validator.Err(); err != nil {
		return err
	}

	log.ID = uuid.New()
	log.BatchID = batchID
	if log.LoggedAt.IsZero() {
		log.LoggedAt = time.Now()
	}

	if err := service.repo.CreateCuringLog(context, log); err != nil {
		return err
	}

	service.logger.Info("curing_log_recorded",
		slog.String("batch_id", batchID),
		slog.Float64("temperature_c", log.TemperatureC),
		slog.Float64("humidity_pct", log.HumidityPct),
	)
	return nil
}
