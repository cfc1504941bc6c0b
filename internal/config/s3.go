package config

import "fmt"

// S3Config holds settings for the S3-compatible object store backend.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint for MinIO and other S3-compatible stores
	AccessKeyID     string // optional; falls back to the default credential chain
	SecretAccessKey string
	PathStyle       bool
	KeyPrefix       string
	StorageClass    string
}

// loadS3Config loads object store configuration from environment variables.
// Environment variables:
//   - S3_BUCKET, S3_REGION (default: us-east-1), S3_ENDPOINT
//   - S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY
//   - S3_PATH_STYLE (default: false)
//   - S3_KEY_PREFIX (default: uploads/)
//   - S3_STORAGE_CLASS (default: STANDARD_IA)
func loadS3Config() *S3Config {
	return &S3Config{
		Bucket:          getEnv("S3_BUCKET", ""),
		Region:          getEnv("S3_REGION", "us-east-1"),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		PathStyle:       getEnvBool("S3_PATH_STYLE", false),
		KeyPrefix:       getEnv("S3_KEY_PREFIX", "uploads/"),
		StorageClass:    getEnv("S3_STORAGE_CLASS", "STANDARD_IA"),
	}
}

// validateS3Settings validates object store configuration when STORAGE_BACKEND=s3.
func (c *Config) validateS3Settings() error {
	if c.S3 == nil {
		return fmt.Errorf("S3 configuration is required when STORAGE_BACKEND=s3")
	}

	if c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET cannot be empty")
	}

	if c.S3.Region == "" {
		return fmt.Errorf("S3_REGION cannot be empty")
	}

	// Static credentials must come as a pair
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}

	return nil
}
