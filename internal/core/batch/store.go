package batch

import "context"

type Repository interface {
	ListBatches(context context.Context, f Filter, limit, offset int) ([]*Batch, int, error)
	GetBatch(context context.Context, id string) (*Batch, error)
	GetBatchBySlug(context context.Context, slug string) (*Batch, error)
	CreateBatch(context context.Context, b *Batch) error
	UpdateBatch(context context.Context, b *Batch) error
	DeleteBatch(context context.Context, id string) error

	ListCuringLogs(context context.Context, batchID string, limit, offset int) ([]*CuringLog, int, error)
	CreateCuringLog(context context.Context, log *CuringLog) error
}
