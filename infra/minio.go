package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vidlingo/dub-orchestrator/config"
)

// MinioClient is the object store for dubbed media artifacts. All assets of
// one video live under the deterministic prefix "dubs/<videoID>/".
type MinioClient struct {
	Admin     *madmin.AdminClient
	Client    *minio.Client
	Endpoint  string
	Bucket    string
	PublicURL string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}

	rootUser := cfg.Minio.RootUser
	if rootUser == "" {
		panic("MinIO root user is not configured")
	}

	rootPassword := cfg.Minio.RootPassword
	if rootPassword == "" {
		panic("MinIO root password is not configured")
	}

	madminClient, err := madmin.New(endpoint, rootUser, rootPassword, false)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO admin client: %v", err))
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: false,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	client := &MinioClient{
		Admin:     madminClient,
		Client:    minioClient,
		Endpoint:  endpoint,
		Bucket:    cfg.Minio.Bucket,
		PublicURL: cfg.Minio.PublicURL,
	}

	if err := client.EnsureBucket(context.Background(), client.Bucket); err != nil {
		panic(fmt.Sprintf("Failed to ensure dub bucket: %v", err))
	}

	return client
}

func (m *MinioClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	if bucketName == "" {
		return false, fmt.Errorf("bucketName cannot be empty")
	}

	exists, err := m.Client.BucketExists(ctx, bucketName)
	if err != nil {
		return false, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	return exists, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (m *MinioClient) EnsureBucket(ctx context.Context, bucketName string) error {
	exists, err := m.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}

	if !exists {
		err := m.Client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: "us-east-1"})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// PutFile uploads a local file under key and returns its public URL.
func (m *MinioClient) PutFile(ctx context.Context, key, filePath, contentType, cacheControl string) (string, error) {
	if key == "" || filePath == "" {
		return "", fmt.Errorf("key and filePath cannot be empty")
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if cacheControl != "" {
		opts.CacheControl = cacheControl
	}

	if _, err := m.Client.FPutObject(ctx, m.Bucket, key, filePath, opts); err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return m.ObjectURL(key), nil
}

func (m *MinioClient) ObjectURL(key string) string {
	if m.PublicURL != "" {
		return fmt.Sprintf("%s/%s/%s", m.PublicURL, m.Bucket, key)
	}
	return fmt.Sprintf("http://%s/%s/%s", m.Endpoint, m.Bucket, key)
}

func (m *MinioClient) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	if err := m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// DeleteObjectsWithPrefix deletes every object under prefix. Individual
// failures do not stop the remaining deletions; they are collected and
// returned joined.
func (m *MinioClient) DeleteObjectsWithPrefix(ctx context.Context, prefix string) error {
	objectCh := m.Client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	objectsCh := make(chan minio.ObjectInfo)

	go func() {
		defer close(objectsCh)
		for obj := range objectCh {
			if obj.Err != nil {
				continue
			}
			objectsCh <- obj
		}
	}()

	var errs []error
	errorCh := m.Client.RemoveObjects(ctx, m.Bucket, objectsCh, minio.RemoveObjectsOptions{})
	for err := range errorCh {
		if err.Err != nil {
			errs = append(errs, fmt.Errorf("failed to delete object %s: %w", err.ObjectName, err.Err))
		}
	}
	return errors.Join(errs...)
}

// Health pings the MinIO deployment through the admin API.
func (m *MinioClient) Health(ctx context.Context) error {
	if _, err := m.Admin.ServerInfo(ctx); err != nil {
		return fmt.Errorf("minio health check failed: %w", err)
	}
	return nil
}
