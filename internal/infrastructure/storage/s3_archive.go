// Package storage archives finished provider job results in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adinventory/backend/internal/domain/integration"
	infraconfig "github.com/adinventory/backend/internal/infrastructure/config"
)

// KeyPrefix is the top-level folder of archived forecast results
const KeyPrefix = "forecasts"

// ErrArchiveNotFound is returned when no result was archived for a job
var ErrArchiveNotFound = errors.New("storage: archived job result not found")

// Ensure S3Archive implements JobResultArchive
var _ integration.JobResultArchive = (*S3Archive)(nil)

// ArchivedJob is the JSON document written for a finished job
type ArchivedJob struct {
	ExternalJobID string              `json:"external_job_id"`
	IntegrationID uuid.UUID           `json:"integration_id"`
	Kind          integration.JobKind `json:"kind"`
	Result        map[string]any      `json:"result"`
	ArchivedAt    time.Time           `json:"archived_at"`
}

// S3Archive stores finished forecast and availability results as JSON
// documents. Any S3-compatible backend works (AWS S3, MinIO, RustFS).
type S3Archive struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
	now    func() time.Time
}

// S3ArchiveOption is a functional option for configuring S3Archive
type S3ArchiveOption func(*S3Archive)

// WithLogger sets a custom logger for S3Archive
func WithLogger(logger *zap.Logger) S3ArchiveOption {
	return func(s *S3Archive) {
		s.logger = logger
	}
}

// NewS3Archive creates a new S3Archive from configuration
func NewS3Archive(cfg *infraconfig.StorageConfig, opts ...S3ArchiveOption) (*S3Archive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		// S3-compatible servers reject the default trailing checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	archive := &S3Archive{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// normalizeEndpoint returns "" for AWS itself, otherwise an absolute URL
func normalizeEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// ObjectKey returns forecasts/<integration>/<job>.json
func ObjectKey(integrationID uuid.UUID, externalJobID string) string {
	return path.Join(KeyPrefix, integrationID.String(), url.PathEscape(externalJobID)+".json")
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3Archive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Store writes the result of a finished job. Unfinished jobs are rejected.
func (s *S3Archive) Store(ctx context.Context, job *integration.AsyncJob) error {
	if job == nil || job.ExternalJobID == "" {
		return errors.New("job id is required")
	}
	if job.Status != integration.JobStatusFinished {
		return fmt.Errorf("job %s is %s, only finished jobs are archived", job.ExternalJobID, job.Status)
	}

	body, err := json.Marshal(ArchivedJob{
		ExternalJobID: job.ExternalJobID,
		IntegrationID: job.IntegrationID,
		Kind:          job.Kind,
		Result:        job.Result,
		ArchivedAt:    s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode job result: %w", err)
	}

	key := ObjectKey(job.IntegrationID, job.ExternalJobID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload job result: %w", err)
	}

	s.logger.Debug("Archived job result",
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)
	return nil
}

// Fetch reads an archived job result
func (s *S3Archive) Fetch(ctx context.Context, integrationID uuid.UUID, externalJobID string) (*ArchivedJob, error) {
	if externalJobID == "" {
		return nil, errors.New("job id is required")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ObjectKey(integrationID, externalJobID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, ErrArchiveNotFound
		}
		return nil, fmt.Errorf("failed to download job result: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read job result: %w", err)
	}
	var archived ArchivedJob
	if err := json.Unmarshal(raw, &archived); err != nil {
		return nil, fmt.Errorf("failed to decode job result: %w", err)
	}
	return &archived, nil
}

// Bucket returns the bucket name
func (s *S3Archive) Bucket() string {
	return s.bucket
}
