package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
)

const (
	// DefaultPartSize is the multipart chunk size for streamed uploads (10MB).
	DefaultPartSize = 10 * 1024 * 1024
	// DefaultConcurrency is the number of parts uploaded in parallel.
	DefaultConcurrency = 4
	defaultContentType = "video/mp4"
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	RecordingsBucket     string
	PresignExpireMinutes int
	PartSize             int64
	Concurrency          int
}

// UploadResult describes an object written by UploadFromURL.
type UploadResult struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// MoveResult describes the outcome of a copy-then-delete move.
type MoveResult struct {
	SourceDeleted bool `json:"source_deleted"`
}

type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type uploadAPI interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 is the object store gateway for the recordings bucket.
type S3 struct {
	api      objectAPI
	uploader uploadAPI
	presign  presignAPI
	http     *http.Client
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or .env (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region), zap.String("recordings_bucket", cfg.RecordingsBucket))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	partSize := cfg.PartSize
	if partSize <= 0 {
		partSize = DefaultPartSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	// Memory use is bounded by PartSize * Concurrency regardless of object size.
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
		u.Concurrency = concurrency
		u.LeavePartsOnError = false
	})
	return newS3(client, uploader, s3.NewPresignClient(client), http.DefaultClient, cfg, logger), nil
}

func newS3(api objectAPI, up uploadAPI, presign presignAPI, httpClient *http.Client, cfg S3Config, logger *zap.Logger) *S3 {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &S3{api: api, uploader: up, presign: presign, http: httpClient, cfg: cfg, logger: logger}
}

// Bucket returns the recordings bucket name.
func (s *S3) Bucket() string { return s.cfg.RecordingsBucket }

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// HeadObject returns object metadata if it exists.
func (s *S3) HeadObject(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	return s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.RecordingsBucket),
		Key:    aws.String(key),
	})
}

// Exists reports whether key is present. Not-found is a normal false.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.HeadObject(ctx, key)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, apperr.Storage("head object "+key, err)
}

// ObjectSize returns the stored size of key.
func (s *S3) ObjectSize(ctx context.Context, key string) (int64, error) {
	out, err := s.HeadObject(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return 0, apperr.NotFound("head object", "object not found: "+key)
		}
		return 0, apperr.Storage("head object "+key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Upload streams a reader to the recordings bucket as a multipart upload.
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error {
	var contentLengthPtr *int64
	if contentLength > 0 {
		contentLengthPtr = &contentLength
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.RecordingsBucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLengthPtr,
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

// UploadFromURL streams the body at sourceURL into key without buffering the whole file.
// On failure the multipart upload is aborted, so nothing becomes visible at key.
func (s *S3) UploadFromURL(ctx context.Context, sourceURL, key string) (UploadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return UploadResult{}, apperr.Transfer("create source request", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return UploadResult{}, apperr.Transfer("fetch source", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UploadResult{}, apperr.Wrapf(apperr.KindTransfer, "fetch source", nil, "source status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = defaultContentType
	}
	body := &countingReader{r: resp.Body}
	s.logger.Info("S3 upload starting",
		zap.String("bucket", s.cfg.RecordingsBucket),
		zap.String("key", key),
		zap.Int64("content_length", resp.ContentLength),
	)
	if err := s.Upload(ctx, key, contentType, body, resp.ContentLength); err != nil {
		return UploadResult{}, apperr.Transfer("upload "+key, err)
	}
	s.logger.Info("S3 upload completed", zap.String("key", key), zap.Int64("size", body.n))
	return UploadResult{Key: key, SizeBytes: body.n}, nil
}

// DeleteObject removes an object from the recordings bucket.
func (s *S3) DeleteObject(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.RecordingsBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Move copies sourceKey to destKey and then deletes sourceKey. It is not atomic:
// a failed delete leaves the source behind but still reports success.
func (s *S3) Move(ctx context.Context, sourceKey, destKey string) (MoveResult, error) {
	_, err := s.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.cfg.RecordingsBucket),
		Key:        aws.String(destKey),
		CopySource: aws.String(copySource(s.cfg.RecordingsBucket, sourceKey)),
	})
	if err != nil {
		return MoveResult{}, apperr.Storage("copy "+sourceKey+" to "+destKey, err)
	}
	if err := s.DeleteObject(ctx, sourceKey); err != nil {
		s.logger.Warn("move: source not deleted after copy",
			zap.String("source_key", sourceKey),
			zap.String("dest_key", destKey),
			zap.Error(err),
		)
		return MoveResult{SourceDeleted: false}, nil
	}
	return MoveResult{SourceDeleted: true}, nil
}

// IssueReadLocator returns a pre-signed GET URL valid for ttl.
func (s *S3) IssueReadLocator(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.PresignExpire()
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.RecordingsBucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", apperr.Storage("presign get", err)
	}
	return req.URL, nil
}

func copySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
