package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/domain"
)

type ReportRepository struct {
	client *s3.Client
	bucket string
}

// NewReportRepository creates a new S3 report repository
func NewReportRepository(ctx context.Context, cfg appConfig.S3Config) (*ReportRepository, error) {
	// Custom resolver for MinIO/Localstack support
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		// returning EndpointNotFoundError will allow the service to fallback to it's default resolution
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO
	})

	return &ReportRepository{
		client: client,
		bucket: cfg.ReportsBucket,
	}, nil
}

// StoreRollup uploads a rollup report and returns the object key.
// Key format: rollups/year/month/scope-id-timestamp.json
func (r *ReportRepository) StoreRollup(ctx context.Context, rollup *domain.RiskRollup) (string, error) {
	data, err := json.Marshal(rollup)
	if err != nil {
		return "", fmt.Errorf("failed to marshal rollup for archive: %w", err)
	}

	scope, id := "user", rollup.UserID
	if rollup.ApplicationID != "" {
		scope, id = "application", rollup.ApplicationID
	}

	generated := rollup.GeneratedAt.UTC()
	key := fmt.Sprintf("rollups/%d/%02d/%s-%s-%d.json",
		generated.Year(), generated.Month(), scope, id, generated.Unix())

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload rollup to s3: %w", err)
	}

	return key, nil
}
