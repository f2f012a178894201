// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/tink-backend/internal/config"
)

// DocumentStore keeps generated lease documents.
type DocumentStore interface {
	PutDocument(ctx context.Context, folder, name string, body []byte, contentType string) (string, error)
	DocumentURL(ctx context.Context, key string) (string, error)
}

type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
	localDir string
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Local development keeps documents on disk
		dir := filepath.Join(os.TempDir(), "tink-documents")
		logrus.WithField("dir", dir).Warn("AWS credentials not set, storing lease documents locally")
		return &StorageService{config: config, localDir: dir}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// NewLocalStorageService stores documents under dir.
func NewLocalStorageService(config *config.Config, dir string) *StorageService {
	return &StorageService{config: config, localDir: dir}
}

func (s *StorageService) PutDocument(ctx context.Context, folder, name string, body []byte, contentType string) (string, error) {
	key := s.generateKey(folder, name)

	if s.s3Client == nil {
		return s.putLocal(key, body)
	}

	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.config.AWS.S3Bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String(contentType),
		ContentLength:        aws.Int64(int64(len(body))),
		ServerSideEncryption: aws.String(s3.ServerSideEncryptionAes256),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return key, nil
}

func (s *StorageService) putLocal(key string, body []byte) (string, error) {
	path := filepath.Join(s.localDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return key, nil
}

// DocumentURL returns a short-lived download link.
func (s *StorageService) DocumentURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrNotFound
	}

	if s.s3Client == nil {
		path := filepath.Join(s.localDir, filepath.FromSlash(key))
		if _, err := os.Stat(path); err != nil {
			return "", ErrNotFound
		}
		return "file://" + filepath.ToSlash(path), nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(s.config.AWS.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

func (s *StorageService) generateKey(folder, name string) string {
	timestamp := time.Now().UTC().Format("20060102")
	filename := fmt.Sprintf("%s_%s_%s", timestamp, uuid.New().String()[:8], name)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}

	return filename
}
