// Пакет links: построение ссылок на скачивание файла по пути объекта
// в blob-хранилище.
package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/bigkaa/filecatalog/internal/config"
)

// ErrEmptyPath: у записи нет пути объекта.
var ErrEmptyPath = errors.New("путь объекта пуст")

// Resolver строит ссылку на скачивание по пути объекта.
type Resolver interface {
	Link(ctx context.Context, blobPath string) (string, error)
}

// PathResolver склеивает базовый URL и путь объекта. Ввода-вывода нет.
type PathResolver struct {
	BaseURL string
}

// Link возвращает BaseURL + экранированный путь.
// Пустой BaseURL даёт относительную ссылку вида /files/<path>.
func (p PathResolver) Link(_ context.Context, blobPath string) (string, error) {
	blobPath = strings.TrimLeft(blobPath, "/")
	if blobPath == "" {
		return "", ErrEmptyPath
	}
	base := strings.TrimRight(p.BaseURL, "/")
	if base == "" {
		base = "/files"
	}
	return base + "/" + escapePath(blobPath), nil
}

// escapePath экранирует сегменты пути, сохраняя разделители.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// GCSResolver выдаёт подписанные V4 URL на чтение объекта из бакета GCS.
// Подпись выполняется локально, без обращения к GCS.
type GCSResolver struct {
	bucket string
	ttl    time.Duration

	// Явные учётные данные сервисного аккаунта
	email      string
	privateKey []byte

	// Клиент с учётными данными из файла или окружения
	client *storage.Client
}

// NewGCSResolver создаёт резолвер. Если заданы email и приватный ключ,
// подпись идёт ими; иначе создаётся storage.Client с файлом учётных данных
// (или ADC), и подписывает BucketHandle.
func NewGCSResolver(ctx context.Context, bucket, credentialsFile, email, privateKey string, ttl time.Duration) (*GCSResolver, error) {
	if bucket == "" {
		return nil, errors.New("не задан бакет GCS")
	}
	r := &GCSResolver{bucket: bucket, ttl: ttl}

	if email != "" && privateKey != "" {
		r.email = email
		r.privateKey = []byte(privateKey)
		return r, nil
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента GCS: %w", err)
	}
	r.client = client
	return r, nil
}

// Link возвращает подписанный URL для GET.
func (r *GCSResolver) Link(_ context.Context, blobPath string) (string, error) {
	blobPath = strings.TrimLeft(blobPath, "/")
	if blobPath == "" {
		return "", ErrEmptyPath
	}

	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(r.ttl),
	}

	if r.client == nil {
		opts.GoogleAccessID = r.email
		opts.PrivateKey = r.privateKey
		u, err := storage.SignedURL(r.bucket, blobPath, opts)
		if err != nil {
			return "", fmt.Errorf("подпись URL GCS: %w", err)
		}
		return u, nil
	}

	u, err := r.client.Bucket(r.bucket).SignedURL(blobPath, opts)
	if err != nil {
		return "", fmt.Errorf("подпись URL GCS: %w", err)
	}
	return u, nil
}

// Close закрывает клиент GCS, если он создавался.
func (r *GCSResolver) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// New выбирает резолвер по FC_LINK_MODE.
// Возвращаемая функция освобождает ресурсы резолвера.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Resolver, func(), error) {
	if cfg.LinkMode != config.LinkModeGCS {
		return PathResolver{BaseURL: cfg.LinkBaseURL}, func() {}, nil
	}

	r, err := NewGCSResolver(ctx, cfg.GCSBucket, cfg.GCSCredentials, cfg.GCSSigningEmail, cfg.GCSPrivateKey, cfg.GCSSignedURLTTL)
	if err != nil {
		return nil, func() {}, err
	}
	logger.Info("Ссылки на скачивание: подписанные URL GCS",
		slog.String("bucket", cfg.GCSBucket),
		slog.Duration("ttl", cfg.GCSSignedURLTTL),
	)
	return r, func() {
		if err := r.Close(); err != nil {
			logger.Warn("Ошибка закрытия клиента GCS", slog.String("error", err.Error()))
		}
	}, nil
}
