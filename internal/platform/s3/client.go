package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/computectl/internal/paginate"
)

// DefaultPrefix is the key prefix cursors are stored under.
const DefaultPrefix = "computectl/cursors/"

// Options configure a CursorStore.
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	// PathStyle addresses the bucket in the path, as MinIO and LocalStack
	// expect.
	PathStyle bool
}

// CursorStore implements paginate.Store on top of an S3 bucket. Each cursor
// is one JSON object.
type CursorStore struct {
	s3     *s3.Client
	bucket string
	prefix string
}

var _ paginate.Store = (*CursorStore)(nil)

// NewCursorStore creates a store from opts.
func NewCursorStore(ctx context.Context, opts Options) (*CursorStore, error) {
	if opts.Bucket == "" {
		return nil, errors.New("cursor store: bucket is required")
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
		// S3-compatible stores reject the default streaming checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return newCursorStore(client, opts.Bucket, opts.Prefix), nil
}

func newCursorStore(client *s3.Client, bucket, prefix string) *CursorStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &CursorStore{s3: client, bucket: bucket, prefix: prefix}
}

func (s *CursorStore) objectKey(key string) string {
	return path.Join(s.prefix, url.PathEscape(key)) + ".json"
}

// EnsureBucket creates the bucket unless it already exists and is ours.
func (s *CursorStore) EnsureBucket(ctx context.Context) error {
	_, err := s.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFoundError(err) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	_, err = s.s3.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil && !isBucketAlreadyOwnedByYou(err) {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Load implements paginate.Store.
func (s *CursorStore) Load(ctx context.Context, key string) (paginate.Cursor, bool, error) {
	result, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return paginate.Cursor{}, false, nil
		}
		return paginate.Cursor{}, false, fmt.Errorf("failed to get cursor %s: %w", key, err)
	}
	defer result.Body.Close()

	var c paginate.Cursor
	if err := json.NewDecoder(result.Body).Decode(&c); err != nil {
		return paginate.Cursor{}, false, fmt.Errorf("failed to parse cursor %s: %w", key, err)
	}
	return c, true, nil
}

// Save implements paginate.Store.
func (s *CursorStore) Save(ctx context.Context, key string, c paginate.Cursor) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cursor: %w", err)
	}
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put cursor %s: %w", key, err)
	}
	return nil
}

// Delete implements paginate.Store. A missing cursor is not an error.
func (s *CursorStore) Delete(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete cursor %s: %w", key, err)
	}
	return nil
}

// Keys lists the keys of stored cursors.
func (s *CursorStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list cursors in bucket %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(obj.Key), s.prefix), ".json")
			if key, err := url.PathUnescape(name); err == nil {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func isBucketAlreadyOwnedByYou(err error) bool {
	if err == nil {
		return false
	}
	var baoby *types.BucketAlreadyOwnedByYou
	if errors.As(err, &baoby) {
		return true
	}
	// S3-compatible services do not always return the typed errors.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "BucketAlreadyOwnedByYou"
	}
	return false
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket", "404":
			return true
		}
	}
	return false
}
