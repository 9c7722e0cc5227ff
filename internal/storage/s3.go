// Package storage archives raw document text in S3-compatible object
// storage. The database keeps only chunks; the original upload lives here
// so documents can be re-ingested without a new upload.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/strategraph/backend/internal/util"
)

func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

func documentKey(documentID string) string {
	return fmt.Sprintf("documents/%s.txt", documentID)
}

// PutDocumentText archives the raw text of a document and returns its
// object key.
func PutDocumentText(ctx context.Context, client *s3.Client, documentID string, text string) (string, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	key := documentKey(documentID)
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload document text to S3: %w", err)
	}

	return key, nil
}

// GetDocumentText loads the archived raw text of a document.
func GetDocumentText(ctx context.Context, client *s3.Client, documentID string) (string, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(documentKey(documentID)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get document text from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return "", fmt.Errorf("failed to read document text: %w", err)
	}

	return buf.String(), nil
}

// DeleteDocumentText removes the archived text of a deleted document.
func DeleteDocumentText(ctx context.Context, client *s3.Client, documentID string) error {
	bucket := util.GetEnv("AWS_BUCKET")
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(documentKey(documentID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document text from S3: %w", err)
	}

	return nil
}
