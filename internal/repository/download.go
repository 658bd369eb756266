package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bigkaa/filecatalog/internal/domain/model"
)

// DownloadRepository: журнал скачиваний (таблица file_downloads).
type DownloadRepository interface {
	// Record сохраняет событие скачивания. ErrNotFound: файла нет.
	Record(ctx context.Context, fileID string, userID *string) (*model.DownloadEvent, error)
	// CountByFileIDs считает скачивания для набора файлов одним запросом.
	// since == nil: за всё время.
	CountByFileIDs(ctx context.Context, ids []string, since *time.Time) (map[string]int64, error)
}

type downloadRepo struct {
	db DBTX
}

// NewDownloadRepository создаёт репозиторий журнала скачиваний.
func NewDownloadRepository(db DBTX) DownloadRepository {
	return &downloadRepo{db: db}
}

// Record сохраняет событие скачивания файла.
func (r *downloadRepo) Record(ctx context.Context, fileID string, userID *string) (*model.DownloadEvent, error) {
	e := &model.DownloadEvent{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO file_downloads (file_id, user_id)
		VALUES ($1, $2)
		RETURNING id, file_id, user_id, downloaded_at`,
		fileID, userID,
	).Scan(&e.ID, &e.FileID, &e.UserID, &e.DownloadedAt)
	if err != nil {
		if isForeignKeyViolation(err) || isInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка записи скачивания: %w", err)
	}
	return e, nil
}

// CountByFileIDs возвращает количество скачиваний по файлам (GROUP BY file_id).
// Файлы без скачиваний в карту не попадают.
func (r *downloadRepo) CountByFileIDs(ctx context.Context, ids []string, since *time.Time) (map[string]int64, error) {
	result := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	q := `SELECT file_id, COUNT(*) FROM file_downloads WHERE file_id = ANY($1)`
	args := []any{ids}
	if since != nil {
		q += ` AND downloaded_at >= $2`
		args = append(args, *since)
	}
	q += ` GROUP BY file_id`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта скачиваний: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int64
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования счётчика скачиваний: %w", err)
		}
		result[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}
