// Package s3 implements the storage.Backend interface for AWS S3 and S3-compatible storage.
package s3

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/storage"
)

const (
	// DefaultKeyPrefix is prepended to every stored key.
	DefaultKeyPrefix = "uploads/"

	// DefaultStorageClass matches infrequently downloaded shared files.
	DefaultStorageClass = "STANDARD_IA"

	// multipartUploadPartSize is the size for S3 multipart upload parts (5MB minimum)
	multipartUploadPartSize = 5 * 1024 * 1024

	healthCheckTimeout = 5 * time.Second
)

// S3Config holds configuration for S3 storage.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Custom endpoint for MinIO or other S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool // Use path-style addressing (required for MinIO)
	KeyPrefix       string
	StorageClass    string
}

// objectAPI is the subset of the S3 client used by S3Storage.
type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// uploader streams an object body to S3.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Storage implements storage.Backend for AWS S3 and S3-compatible storage.
type S3Storage struct {
	client       objectAPI
	uploader     uploader
	bucket       string
	keyPrefix    string
	storageClass types.StorageClass
}

// NewS3Storage creates a new S3Storage with the given configuration.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	var optFuncs []func(*config.LoadOptions) error

	if cfg.Region != "" {
		optFuncs = append(optFuncs, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFuncs = append(optFuncs, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFuncs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	up := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = multipartUploadPartSize
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket %q: %w", cfg.Bucket, err)
	}

	slog.Info("S3 storage initialized",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
		"path_style", cfg.PathStyle,
		"storage_class", cfg.StorageClass,
	)

	return newWithClients(client, up, cfg), nil
}

func newWithClients(client objectAPI, up uploader, cfg S3Config) *S3Storage {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	class := cfg.StorageClass
	if class == "" {
		class = DefaultStorageClass
	}

	return &S3Storage{
		client:       client,
		uploader:     up,
		bucket:       cfg.Bucket,
		keyPrefix:    prefix,
		storageClass: types.StorageClass(class),
	}
}

// Kind implements storage.Backend.
func (s *S3Storage) Kind() string {
	return models.StorageBackendObjectStore
}

// objectKey returns the full object key for a stored key.
func (s *S3Storage) objectKey(key string) string {
	return s.keyPrefix + key
}

// validateKey ensures the S3 key doesn't contain path traversal attacks or dangerous characters.
func (s *S3Storage) validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key not allowed", storage.ErrInvalidKey)
	}

	// Null bytes can cause truncation issues
	if strings.ContainsRune(key, '\x00') {
		return fmt.Errorf("%w: null bytes not allowed in key", storage.ErrInvalidKey)
	}

	// Keys that look URL-encoded invite double-encoding attacks
	if strings.Contains(key, "%") {
		return fmt.Errorf("%w: encoded characters not allowed in key", storage.ErrInvalidKey)
	}

	if strings.Contains(key, "..") {
		return fmt.Errorf("%w: path traversal not allowed: %s", storage.ErrInvalidKey, key)
	}

	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == "/" {
		return fmt.Errorf("%w: invalid key: %s", storage.ErrInvalidKey, key)
	}

	return nil
}

// hashingReader wraps a reader to compute SHA256 hash and byte count while reading
type hashingReader struct {
	reader io.Reader
	hasher hash.Hash
	n      int64
}

func newHashingReader(r io.Reader) *hashingReader {
	h := sha256.New()
	return &hashingReader{
		reader: io.TeeReader(r, h),
		hasher: h,
	}
}

func (hr *hashingReader) Read(p []byte) (n int, err error) {
	n, err = hr.reader.Read(p)
	hr.n += int64(n)
	return n, err
}

func (hr *hashingReader) Hash() string {
	return hex.EncodeToString(hr.hasher.Sum(nil))
}

// Store streams data to S3 under the prefixed key.
// Uses streaming multipart upload to avoid loading entire file into memory.
// The returned location is the full object key.
func (s *S3Storage) Store(ctx context.Context, key string, reader io.Reader, size int64, mimeType string) (*storage.StoredObject, error) {
	if err := s.validateKey(key); err != nil {
		return nil, storage.NewStorageErrorWithMessage("Store", key, err, "key validation failed")
	}

	objectKey := s.objectKey(key)

	exists, err := s.exists(ctx, objectKey)
	if err != nil {
		return nil, storage.NewStorageError("Store", objectKey, err)
	}
	if exists {
		return nil, storage.NewStorageErrorWithMessage("Store", objectKey, storage.ErrAlreadyExists, "key already in use")
	}

	hr := newHashingReader(reader)

	input := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(objectKey),
		Body:                 hr,
		IfNoneMatch:          aws.String("*"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		StorageClass:         s.storageClass,
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return nil, storage.NewStorageErrorWithMessage("Store", objectKey, storage.ErrAlreadyExists, "key already in use")
		}
		return nil, storage.NewStorageError("Store", objectKey, err)
	}

	if size >= 0 && hr.n != size {
		// Remove the short object so no record ever points at it
		if _, delErr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
		}); delErr != nil {
			slog.Error("failed to remove object after size mismatch", "key", objectKey, "error", delErr)
		}
		return nil, storage.NewStorageErrorWithMessage("Store", objectKey, nil,
			fmt.Sprintf("size mismatch: expected %d bytes, wrote %d bytes", size, hr.n))
	}

	hash := hr.Hash()

	slog.Debug("file stored in S3",
		"key", objectKey,
		"size", hr.n,
		"hash", hash[:16]+"...",
	)

	return &storage.StoredObject{
		Location: objectKey,
		Size:     hr.n,
		SHA256:   hash,
	}, nil
}

// Retrieve returns a reader for the stored object.
func (s *S3Storage) Retrieve(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := s.validateKey(location); err != nil {
		return nil, storage.NewStorageErrorWithMessage("Retrieve", location, err, "key validation failed")
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(location),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.NewStorageErrorWithMessage("Retrieve", location, storage.ErrNotFound, "file not found")
		}
		return nil, storage.NewStorageError("Retrieve", location, err)
	}

	return result.Body, nil
}

// Delete removes an object from S3.
// S3 doesn't error on delete of non-existent objects, so Delete is idempotent.
func (s *S3Storage) Delete(ctx context.Context, location string) error {
	if err := s.validateKey(location); err != nil {
		return storage.NewStorageErrorWithMessage("Delete", location, err, "key validation failed")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(location),
	})
	if err != nil && !isNotFound(err) {
		return storage.NewStorageError("Delete", location, err)
	}

	slog.Debug("file deleted from S3", "key", location)
	return nil
}

// Describe returns the size and last modification time of an object.
func (s *S3Storage) Describe(ctx context.Context, location string) (*storage.ObjectInfo, error) {
	if err := s.validateKey(location); err != nil {
		return nil, storage.NewStorageErrorWithMessage("Describe", location, err, "key validation failed")
	}

	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(location),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.NewStorageErrorWithMessage("Describe", location, storage.ErrNotFound, "file not found")
		}
		return nil, storage.NewStorageError("Describe", location, err)
	}

	info := &storage.ObjectInfo{}
	if result.ContentLength != nil {
		info.Size = *result.ContentLength
	}
	if result.LastModified != nil {
		info.LastModified = *result.LastModified
	}
	return info, nil
}

// HealthCheck verifies that the bucket is accessible with a bounded HEAD request.
func (s *S3Storage) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	_, err := s.client.HeadBucket(checkCtx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return storage.NewStorageErrorWithMessage("HealthCheck", s.bucket, err, "S3 bucket not accessible")
	}
	return nil
}

func (s *S3Storage) exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isNotFound(err error) bool {
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
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
