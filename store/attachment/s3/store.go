// Package s3 stores conversation attachments in AWS S3 or an S3-compatible
// service.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rbaliyan/conversation/store"
)

const scheme = "s3://"

// Store implements store.AttachmentFileStore using S3.
type Store struct {
	client *s3.Client
	tm     *transfermanager.Client
	bucket string
	prefix string
	logger *slog.Logger
}

var _ store.AttachmentFileStore = (*Store)(nil)

// New creates an S3 attachment store. ctx is used to load credentials.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	o := newOptions(opts...)
	if o.bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	cfg, err := loadConfig(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
			so.UsePathStyle = o.usePathStyle
		}
	})

	return &Store{
		client: client,
		tm:     transfermanager.New(client),
		bucket: o.bucket,
		prefix: o.prefix,
		logger: o.logger,
	}, nil
}

// loadConfig resolves credentials in order: static keys, assumed role,
// then the SDK default chain (env, shared config, IRSA, instance role).
func loadConfig(ctx context.Context, o *options) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(o.region)}

	switch {
	case o.accessKey != "" && o.secretKey != "":
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, o.sessionToken)))
	case o.roleARN != "":
		base, err := config.LoadDefaultConfig(ctx, config.WithRegion(o.region))
		if err != nil {
			return aws.Config{}, fmt.Errorf("base config for role: %w", err)
		}
		loaders = append(loaders, config.WithCredentialsProvider(assumeRole(base, o)))
	}

	return config.LoadDefaultConfig(ctx, loaders...)
}

// Upload streams content to S3 and returns an s3://bucket/key URI.
// The original filename is kept in the Content-Disposition header.
func (s *Store) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	key := s.objectKey()

	input := &transfermanager.UploadObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               content,
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": filename})),
	}
	if _, err := s.tm.UploadObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3: upload %s: %w", filename, err)
	}

	s.logger.Debug("stored attachment", "bucket", s.bucket, "key", key, "filename", filename)
	return scheme + s.bucket + "/" + key, nil
}

// Load opens the object behind uri.
func (s *Store) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("s3: get %s: %w", key, err)
	}
	return out.Body, nil
}

// Delete removes the object behind uri.
func (s *Store) Delete(ctx context.Context, uri string) error {
	bucket, key, err := parseURI(uri)
	if err != nil {
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3: delete %s: %w", key, err)
	}

	s.logger.Debug("deleted attachment", "bucket", bucket, "key", key)
	return nil
}

// objectKey partitions keys by month so listings stay cheap.
func (s *Store) objectKey() string {
	return path.Join(s.prefix, time.Now().UTC().Format("2006/01"), uuid.New().String())
}

func parseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return "", "", fmt.Errorf("s3: invalid uri %q: %w", uri, store.ErrInvalidID)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3: invalid uri %q: %w", uri, store.ErrInvalidID)
	}
	return bucket, key, nil
}
