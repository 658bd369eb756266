package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/query"
)

// fileColumns: список столбцов таблицы files для SELECT-запросов.
const fileColumns = `id, owner_id, original_name, blob_path,
	application, issue, ingredient, customer, trial_ref, author,
	status, is_preview_hidden, created_at, updated_at`

// FileRepository: интерфейс доступа к записям таблицы files.
type FileRepository interface {
	// Create вставляет запись. Временные метки выставляет БД.
	Create(ctx context.Context, f *model.FileRecord) (*model.FileRecord, error)
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, id string) (*model.FileRecord, error)
	// Update перезаписывает изменяемые поля и обновляет updated_at.
	Update(ctx context.Context, f *model.FileRecord) (*model.FileRecord, error)
	// Delete удаляет запись (события скачивания удаляются каскадно).
	Delete(ctx context.Context, id string) error
	// Search выполняет скомпилированный запрос.
	// Возвращает: записи страницы, общее количество, ошибка.
	Search(ctx context.Context, q query.StoreQuery) ([]*model.FileRecord, int, error)
	// ListAll возвращает записи в любом статусе с id > afterID (keyset-пагинация).
	ListAll(ctx context.Context, afterID string, limit int) ([]*model.FileRecord, error)
	// ExistingIDs возвращает подмножество ids, для которых есть запись в хранилище.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	// PreviewFlags возвращает флаг is_preview_hidden для переданных ids.
	PreviewFlags(ctx context.Context, ids []string) (map[string]bool, error)
}

// fileRepo: реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// Create вставляет запись и возвращает её с временными метками.
func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) (*model.FileRecord, error) {
	q := fmt.Sprintf(`
		INSERT INTO files (id, owner_id, original_name, blob_path,
			application, issue, ingredient, customer, trial_ref, author,
			status, is_preview_hidden)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s`, fileColumns)

	created, err := scanFile(r.db.QueryRow(ctx, q,
		f.ID, f.OwnerID, f.OriginalName, f.BlobPath,
		f.Application, f.Issue, f.Ingredient, f.Customer, f.TrialRef, f.Author,
		f.Status, f.IsPreviewHidden,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("ошибка создания файла: %w", err)
	}
	return created, nil
}

// GetByID возвращает запись по UUID или ErrNotFound.
func (r *fileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// Update перезаписывает изменяемые поля записи. updated_at выставляется БД.
func (r *fileRepo) Update(ctx context.Context, f *model.FileRecord) (*model.FileRecord, error) {
	q := fmt.Sprintf(`
		UPDATE files
		SET owner_id = $2, original_name = $3, blob_path = $4,
			application = $5, issue = $6, ingredient = $7, customer = $8,
			trial_ref = $9, author = $10, status = $11, is_preview_hidden = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING %s`, fileColumns)

	updated, err := scanFile(r.db.QueryRow(ctx, q,
		f.ID, f.OwnerID, f.OriginalName, f.BlobPath,
		f.Application, f.Issue, f.Ingredient, f.Customer, f.TrialRef, f.Author,
		f.Status, f.IsPreviewHidden,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("ошибка обновления файла: %w", err)
	}
	return updated, nil
}

// Delete удаляет запись по UUID.
func (r *fileRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		if isInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search выполняет скомпилированный запрос с пагинацией.
// Общее количество считается отдельным запросом с теми же условиями.
func (r *fileRepo) Search(ctx context.Context, sq query.StoreQuery) ([]*model.FileRecord, int, error) {
	where := ""
	if sq.Where != "" {
		where = "WHERE " + sq.Where
	}
	argNum := len(sq.Args) + 1

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM files %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		fileColumns, where, sq.OrderBy, argNum, argNum+1,
	)
	args := make([]any, 0, len(sq.Args)+2)
	args = append(args, sq.Args...)
	args = append(args, sq.Limit, sq.Offset)

	result, err := r.queryFiles(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка поиска файлов: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM files %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, sq.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}

	return result, total, nil
}

// ListAll возвращает страницу записей во всех статусах, упорядоченных по id.
func (r *fileRepo) ListAll(ctx context.Context, afterID string, limit int) ([]*model.FileRecord, error) {
	var (
		q    string
		args []any
	)
	if afterID == "" {
		q = fmt.Sprintf(`SELECT %s FROM files ORDER BY id LIMIT $1`, fileColumns)
		args = []any{limit}
	} else {
		q = fmt.Sprintf(`SELECT %s FROM files WHERE id > $1 ORDER BY id LIMIT $2`, fileColumns)
		args = []any{afterID, limit}
	}

	result, err := r.queryFiles(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения страницы файлов: %w", err)
	}
	return result, nil
}

// ExistingIDs возвращает множество ids, для которых существует запись (в любом статусе).
func (r *fileRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id FROM files WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существования файлов: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// PreviewFlags возвращает флаги скрытия предпросмотра одним запросом.
// Для отсутствующих ids значение в карте не задаётся.
func (r *fileRepo) PreviewFlags(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, is_preview_hidden FROM files WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения флагов предпросмотра: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     string
			hidden bool
		)
		if err := rows.Scan(&id, &hidden); err != nil {
			return nil, fmt.Errorf("ошибка сканирования флага предпросмотра: %w", err)
		}
		result[id] = hidden
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

func (r *fileRepo) queryFiles(ctx context.Context, q string, args ...any) ([]*model.FileRecord, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// scanFile сканирует строку с колонками fileColumns.
func scanFile(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.OriginalName, &f.BlobPath,
		&f.Application, &f.Issue, &f.Ingredient, &f.Customer, &f.TrialRef, &f.Author,
		&f.Status, &f.IsPreviewHidden, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return f, nil
}
