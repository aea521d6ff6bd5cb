package database

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hypernova-labs/metering-service/internal/config"
	"github.com/sirupsen/logrus"
)

// ObjectStorageClient representa el cliente del storage S3 de Supabase
// donde se guardan las imágenes de medidores cuando está configurado.
type ObjectStorageClient struct {
	s3Client *s3.Client
	config   *config.SupabaseConfig
	logger   *logrus.Logger
}

// NewObjectStorageClient crea una nueva instancia del cliente de storage
func NewObjectStorageClient(cfg *config.SupabaseConfig, logger *logrus.Logger) (*ObjectStorageClient, error) {
	// Resolver el endpoint S3 de Supabase
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.StorageEndpoint,
			SigningRegion:     cfg.StorageRegion,
			HostnameImmutable: true,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
			},
		}),
		awsconfig.WithRegion(cfg.StorageRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // Importante para Supabase
	})

	return &ObjectStorageClient{
		s3Client: s3Client,
		config:   cfg,
		logger:   logger,
	}, nil
}

// HealthCheck verifica que el bucket de imágenes existe
func (s *ObjectStorageClient) HealthCheck(bucket string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("error checking object storage connection: %w", err)
	}

	return nil
}

// UploadImage sube una imagen de medidor al bucket y retorna su URL pública
func (s *ObjectStorageClient) UploadImage(ctx context.Context, bucket, fileName string, data []byte, contentType string) (string, error) {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(fileName),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading image to object storage: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.config.StorageEndpoint, bucket, fileName)

	s.logger.WithFields(logrus.Fields{
		"bucket": bucket,
		"file":   fileName,
		"size":   len(data),
	}).Info("Meter image uploaded to object storage")

	return url, nil
}

// DeleteImage elimina una imagen de medidor del bucket
func (s *ObjectStorageClient) DeleteImage(ctx context.Context, bucket, fileName string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(fileName),
	})
	if err != nil {
		return fmt.Errorf("error deleting image from object storage: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": bucket,
		"file":   fileName,
	}).Info("Meter image deleted from object storage")

	return nil
}
