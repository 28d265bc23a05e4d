package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageService prepares per tenant file storage.
type StorageService interface {
	// ProvisionTenant creates the tenant's storage location under prefix
	// and returns where it lives.
	ProvisionTenant(ctx context.Context, tenantID, prefix string) (string, error)
	Ping(ctx context.Context) error
}

// ObjectClient is the subset of *minio.Client used for provisioning.
type ObjectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// TenantStoragePrefix is the object key prefix owned by a tenant.
func TenantStoragePrefix(tenantID string) string {
	return "tenants/" + tenantID + "/"
}

type minioStorage struct {
	client ObjectClient
	bucket string
	log    *zap.Logger
}

func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

func NewMinioStorageService(client ObjectClient, bucket string, log *zap.Logger) StorageService {
	return &minioStorage{client: client, bucket: bucket, log: log.Named("storage.minio")}
}

func (m *minioStorage) ensureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioStorage) ProvisionTenant(ctx context.Context, tenantID, prefix string) (string, error) {
	if err := m.ensureBucketExists(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket %s: %w", m.bucket, err)
	}

	if prefix == "" {
		prefix = TenantStoragePrefix(tenantID)
	}
	marker := prefix + ".keep"
	_, err := m.client.PutObject(ctx, m.bucket, marker, bytes.NewReader(nil), 0, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("create tenant prefix: %w", err)
	}

	location := "s3://" + m.bucket + "/" + prefix
	m.log.Info("tenant storage provisioned", zap.String("tenant_id", tenantID), zap.String("location", location))
	return location, nil
}

func (m *minioStorage) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, m.bucket)
	return err
}

type localStorage struct {
	root string
	log  *zap.Logger
}

// NewLocalStorageService keeps tenant files under root/<tenantID>.
func NewLocalStorageService(root string, log *zap.Logger) StorageService {
	return &localStorage{root: root, log: log.Named("storage.local")}
}

func (l *localStorage) ProvisionTenant(_ context.Context, tenantID, _ string) (string, error) {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return "", fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
	}
	dir := filepath.Join(l.root, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create tenant directory: %w", err)
	}
	l.log.Info("tenant storage provisioned", zap.String("tenant_id", tenantID), zap.String("location", dir))
	return dir, nil
}

func (l *localStorage) Ping(_ context.Context) error {
	return os.MkdirAll(l.root, 0o755)
}
