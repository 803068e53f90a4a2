package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ScoreFM/config"
	"ScoreFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactStore mirrors final audio artifacts into a MinIO bucket so
// they survive local disk cleanup and can be served from object
// storage. It is optional; a nil *ArtifactStore is valid and means
// artifacts stay local-only.
type ArtifactStore struct {
	client *minio.Client
	bucket string
}

// NewArtifactStore connects to MinIO when an endpoint is configured.
// Returns (nil, nil) when MinIO is disabled.
func NewArtifactStore(cfg *config.Config) (*ArtifactStore, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created artifact bucket", logger.String("bucket", cfg.MinioBucket))
	}

	logger.Info("artifact store connected",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return &ArtifactStore{client: client, bucket: cfg.MinioBucket}, nil
}

// UploadAudio mirrors a local audio file under audio/<name>.
func (s *ArtifactStore) UploadAudio(ctx context.Context, localPath, name string) error {
	if s == nil {
		return nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	objectName := "audio/" + name
	opts := minio.PutObjectOptions{ContentType: ContentTypeFor(name)}
	if _, err := s.client.PutObject(ctx, s.bucket, objectName, f, info.Size(), opts); err != nil {
		return fmt.Errorf("uploading %s: %w", objectName, err)
	}

	logger.Info("mirrored audio artifact", logger.String("object", objectName))
	return nil
}

// FetchAudio opens a mirrored artifact for streaming. Callers must
// close the reader.
func (s *ArtifactStore) FetchAudio(ctx context.Context, name string) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("artifact store disabled")
	}

	object, err := s.client.GetObject(ctx, s.bucket, "audio/"+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; probe so missing objects fail here.
	if _, err := object.Stat(); err != nil {
		object.Close()
		return nil, err
	}
	return object, nil
}

// ContentTypeFor maps an audio filename to its MIME type.
func ContentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(name, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(name, ".mid"):
		return "audio/midi"
	default:
		return "application/octet-stream"
	}
}
