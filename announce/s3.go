package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/mskd12/skip-checkpoint-chain/internal/logger"
)

type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// UploadRecordByS3 writes the record JSON to the configured bucket under
// the record's object key.
func UploadRecordByS3(r *Record, cfg S3Config, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return fmt.Errorf("building aws config: %w", err)
	}

	recordJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg))
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(r.ObjectKey()),
		Body:   bytes.NewReader(recordJSON),
	}); err != nil {
		return fmt.Errorf("uploading %s: %w", r.ObjectKey(), err)
	}

	logger.Logger.Info("record uploaded to s3",
		zap.String("key", r.ObjectKey()),
		zap.String("bucket", cfg.Bucket),
	)
	return nil
}
