package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a record; id and created_at come from the database.
func (r *PostgresRepository) Create(ctx context.Context, file *models.NewFile) (*models.File, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}

	query := `INSERT INTO files (filename, original_name, mime_type, size)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	rec := &models.File{
		Filename:     file.Filename,
		OriginalName: file.OriginalName,
		MimeType:     file.MimeType,
		Size:         file.Size,
	}

	err := r.db.QueryRowContext(ctx, query, file.Filename, file.OriginalName, file.MimeType, file.Size).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert file: %w: %w", common.ErrPersistence, err)
	}

	return rec, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query := `SELECT id, filename, original_name, mime_type, size, created_at FROM files
		WHERE id=$1`

	rec := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&rec.ID, &rec.Filename, &rec.OriginalName, &rec.MimeType, &rec.Size, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w: %w", common.ErrPersistence, err)
	}

	return rec, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.File, error) {
	query := `SELECT id, filename, original_name, mime_type, size, created_at FROM files
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w: %w", common.ErrPersistence, err)
	}
	defer rows.Close()

	result := []*models.File{}
	for rows.Next() {
		var item models.File
		if err := rows.Scan(&item.ID, &item.Filename, &item.OriginalName, &item.MimeType, &item.Size, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w: %w", common.ErrPersistence, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate files: %w: %w", common.ErrPersistence, err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM files WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w: %w", common.ErrPersistence, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w: %w", common.ErrPersistence, err)
	}

	return n > 0, nil
}
