package batch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchtrack/batchtrack/internal/platform/database/schema"
	"github.com/batchtrack/batchtrack/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) ListBatches(context context.Context, f Filter, limit, offset int) ([]*Batch, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s IS NULL
	`,
		schema.Batch.ID, schema.Batch.Name, schema.Batch.Slug, schema.Batch.Stage,
		schema.Batch.StartedAt, schema.Batch.Notes, schema.Batch.CreatedAt, schema.Batch.UpdatedAt,
		schema.Batch.Table, schema.Batch.DeletedAt,
	)
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s IS NULL`, schema.Batch.Table, schema.Batch.DeletedAt)

	args := []any{}
	countArgs := []any{}

	if f.Query != "" {
		searchTerm := "%" + f.Query + "%"
		clause := fmt.Sprintf(" AND %s ILIKE $%d", schema.Batch.Name, len(args)+1)
		query += clause
		countQuery += clause
		args = append(args, searchTerm)
		countArgs = append(countArgs, searchTerm)
	}

	if f.Stage != "" {
		clause := fmt.Sprintf(" AND %s = $%d", schema.Batch.Stage, len(args)+1)
		query += clause
		countQuery += clause
		args = append(args, f.Stage)
		countArgs = append(countArgs, f.Stage)
	}

	query += fmt.Sprintf(" ORDER BY %s DESC LIMIT $", schema.Batch.StartedAt) + itos(len(args)+1) + ` OFFSET $` + itos(len(args)+2)
	args = append(args, limit, offset)

	var total int
	if err := repository.db.QueryRow(context, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_batches")
	}

	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_batches")
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b := &Batch{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug, &b.Stage, &b.StartedAt, &b.Notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_batch")
		}
		batches = append(batches, b)
	}

	return batches, total, nil
}

func (repository *PostgresRepository) GetBatch(context context.Context, id string) (*Batch, error) {
	return repository.getBatchBy(context, schema.Batch.ID, id)
}

func (repository *PostgresRepository) GetBatchBySlug(context context.Context, slug string) (*Batch, error) {
	return repository.getBatchBy(context, schema.Batch.Slug, slug)
}

func (repository *PostgresRepository) getBatchBy(context context.Context, column, value string) (*Batch, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s IS NULL
	`,
		schema.Batch.ID, schema.Batch.Name, schema.Batch.Slug, schema.Batch.Stage,
		schema.Batch.StartedAt, schema.Batch.Notes, schema.Batch.CreatedAt, schema.Batch.UpdatedAt,
		schema.Batch.Table, column, schema.Batch.DeletedAt,
	)
	b := &Batch{}

	err := repository.db.QueryRow(context, query, value).Scan(
		&b.ID, &b.Name, &b.Slug, &b.Stage, &b.StartedAt, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_batch")
	}

	return b, nil
}

func (repository *PostgresRepository) CreateBatch(context context.Context, b *Batch) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING %s, %s
	`,
		schema.Batch.Table, schema.Batch.ID, schema.Batch.Name, schema.Batch.Slug, schema.Batch.Stage,
		schema.Batch.StartedAt, schema.Batch.Notes, schema.Batch.CreatedAt, schema.Batch.UpdatedAt,
		schema.Batch.CreatedAt, schema.Batch.UpdatedAt,
	)

	err := repository.db.QueryRow(context, query, b.ID, b.Name, b.Slug, b.Stage, b.StartedAt, b.Notes).Scan(&b.CreatedAt, &b.UpdatedAt)
	return dberr.Wrap(err, "create_batch")
}

func (repository *PostgresRepository) UpdateBatch(context context.Context, b *Batch) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = NOW()
		WHERE %s = $1 AND %s IS NULL
		RETURNING %s
	`,
		schema.Batch.Table, schema.Batch.Name, schema.Batch.Slug, schema.Batch.Stage,
		schema.Batch.StartedAt, schema.Batch.Notes, schema.Batch.UpdatedAt,
		schema.Batch.ID, schema.Batch.DeletedAt,
		schema.Batch.UpdatedAt,
	)

	err := repository.db.QueryRow(context, query, b.ID, b.Name, b.Slug, b.Stage, b.StartedAt, b.Notes).Scan(&b.UpdatedAt)
	return dberr.Wrap(err, "update_batch")
}

func (repository *PostgresRepository) DeleteBatch(context context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = NOW() WHERE %s = $1 AND %s IS NULL`,
		schema.Batch.Table, schema.Batch.DeletedAt, schema.Batch.ID, schema.Batch.DeletedAt,
	)

	cmd, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_batch")
	}

	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) ListCuringLogs(context context.Context, batchID string, limit, offset int) ([]*CuringLog, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s DESC
		LIMIT $2 OFFSET $3
	`,
		schema.CuringLog.ID, schema.CuringLog.BatchID, schema.CuringLog.LoggedAt,
		schema.CuringLog.TemperatureC, schema.CuringLog.HumidityPct, schema.CuringLog.Note,
		schema.CuringLog.CreatedAt,
		schema.CuringLog.Table, schema.CuringLog.BatchID, schema.CuringLog.LoggedAt,
	)
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s = $1`, schema.CuringLog.Table, schema.CuringLog.BatchID)

	var total int
	if err := repository.db.QueryRow(context, countQuery, batchID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_curing_logs")
	}

	rows, err := repository.db.Query(context, query, batchID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_curing_logs")
	}
	defer rows.Close()

	var logs []*CuringLog
	for rows.Next() {
		l := &CuringLog{}
		if err := rows.Scan(&l.ID, &l.BatchID, &l.LoggedAt, &l.TemperatureC, &l.HumidityPct, &l.Note, &l.CreatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_curing_log")
		}
		logs = append(logs, l)
	}

	return logs, total, nil
}

func (repository *PostgresRepository) CreateCuringLog(context context.Context, log *CuringLog) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING %s
	`,
		schema.CuringLog.Table, schema.CuringLog.ID, schema.CuringLog.BatchID, schema.CuringLog.LoggedAt,
		schema.CuringLog.TemperatureC, schema.CuringLog.HumidityPct, schema.CuringLog.Note,
		schema.CuringLog.CreatedAt,
		schema.CuringLog.CreatedAt,
	)

	err := repository.db.QueryRow(context, query,
		log.ID, log.BatchID, log.LoggedAt, log.TemperatureC, log.HumidityPct, log.Note,
	).Scan(&log.CreatedAt)
	return dberr.Wrap(err, "create_curing_log")
}

func itos(i int) string {
	return strconv.Itoa(i)
}
