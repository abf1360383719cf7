package config

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dfsck/internal/logger"
	"github.com/marmos91/dfsck/pkg/archive"
	archiveS3 "github.com/marmos91/dfsck/pkg/archive/s3"
	"github.com/marmos91/dfsck/pkg/fsck"
	"github.com/marmos91/dfsck/pkg/namespace"
	nsBadger "github.com/marmos91/dfsck/pkg/namespace/badger"
	"github.com/marmos91/dfsck/pkg/namespace/image"
	nsMemory "github.com/marmos91/dfsck/pkg/namespace/memory"
)

// CreateNamespaceService creates a namespace backend based on
// configuration.
//
// This factory function uses the Type field to determine which backend to
// create, then decodes the type-specific configuration from the
// corresponding map and passes it to the backend's constructor. When an
// image is configured it is loaded into the backend before the service is
// returned.
//
// Supported types:
//   - "memory": Uses pkg/namespace/memory (in-memory, ephemeral)
//   - "badger": Uses pkg/namespace/badger (BadgerDB snapshot, persistent)
//
// Returns:
//   - namespace.Service: Initialized backend
//   - func() error: Closer releasing backend resources (never nil)
//   - error: Configuration or initialization error
func CreateNamespaceService(ctx context.Context, cfg *NamespaceConfig, log *logger.Logger) (namespace.Service, func() error, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryService(ctx, cfg, log)
	case "badger":
		return createBadgerService(ctx, cfg, log)
	default:
		return nil, nil, fmt.Errorf("unknown namespace backend type: %q (supported: memory, badger)", cfg.Type)
	}
}

func createMemoryService(ctx context.Context, cfg *NamespaceConfig, log *logger.Logger) (namespace.Service, func() error, error) {
	store := nsMemory.NewStore()
	if err := loadImage(ctx, cfg.Image, store); err != nil {
		return nil, nil, err
	}
	log.Debug("memory namespace backend initialized")
	return store, func() error { return nil }, nil
}

func createBadgerService(ctx context.Context, cfg *NamespaceConfig, log *logger.Logger) (namespace.Service, func() error, error) {
	// Define the configuration struct for the badger backend
	type BadgerBackendConfig struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var backendCfg BadgerBackendConfig
	if err := mapstructure.Decode(cfg.Badger, &backendCfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode badger backend config: %w", err)
	}

	store, err := nsBadger.Open(nsBadger.Config{
		Path:     backendCfg.Path,
		InMemory: backendCfg.InMemory,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open badger snapshot: %w", err)
	}

	if err := loadImage(ctx, cfg.Image, store); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	log.Info("badger namespace backend initialized: path=%s in_memory=%v",
		backendCfg.Path, backendCfg.InMemory)
	return store, store.Close, nil
}

// loadImage imports an XDR namespace image into a writable backend.
func loadImage(ctx context.Context, path string, dst image.Importer) error {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open namespace image: %w", err)
	}
	defer f.Close()

	snap, err := image.Load(f)
	if err != nil {
		return err
	}
	return image.Import(ctx, snap, dst)
}

// CreateRetryPolicy converts the configured retry section into the
// checker's polling policy.
func CreateRetryPolicy(cfg *RetryConfig) fsck.RetryPolicy {
	return fsck.RetryPolicy{
		Interval:    cfg.Interval,
		Multiplier:  cfg.Multiplier,
		MaxInterval: cfg.MaxInterval,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// CreateArchiveSink creates a report archive sink based on configuration.
//
// Supported types:
//   - "none": No archival; returns a nil Sink
//   - "filesystem": Uses pkg/archive (plain files under a directory)
//   - "s3": Uses pkg/archive/s3 (Amazon S3 or compatible storage)
//
// Returns:
//   - archive.Sink: Initialized sink, or nil for type "none"
//   - error: Configuration or initialization error
func CreateArchiveSink(ctx context.Context, cfg *ArchiveConfig, log *logger.Logger) (archive.Sink, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "filesystem":
		return createFilesystemSink(cfg.Filesystem, log)
	case "s3":
		return createS3Sink(ctx, cfg.S3, log)
	default:
		return nil, fmt.Errorf("unknown archive sink type: %q (supported: none, filesystem, s3)", cfg.Type)
	}
}

// createFilesystemSink creates a filesystem-based archive sink.
func createFilesystemSink(options map[string]any, log *logger.Logger) (archive.Sink, error) {
	type FilesystemSinkConfig struct {
		Path string `mapstructure:"path"`
	}

	var sinkCfg FilesystemSinkConfig
	if err := mapstructure.Decode(options, &sinkCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem archive config: %w", err)
	}

	if sinkCfg.Path == "" {
		return nil, fmt.Errorf("filesystem archive: path is required")
	}

	sink, err := archive.NewFSSink(sinkCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem archive: %w", err)
	}

	log.Debug("filesystem archive initialized: path=%s", sinkCfg.Path)
	return sink, nil
}

// createS3Sink creates an S3-based archive sink.
func createS3Sink(ctx context.Context, options map[string]any, log *logger.Logger) (archive.Sink, error) {
	type S3SinkConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var sinkCfg S3SinkConfig
	if err := mapstructure.Decode(options, &sinkCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 archive config: %w", err)
	}

	if sinkCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 archive: bucket is required")
	}
	if sinkCfg.Region == "" {
		return nil, fmt.Errorf("S3 archive: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(sinkCfg.Region))

	// Set custom endpoint if provided (for MinIO, Localstack, etc.)
	if sinkCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               sinkCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Set credentials if provided, otherwise use default credential chain
	if sinkCfg.AccessKeyID != "" && sinkCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			sinkCfg.AccessKeyID,
			sinkCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := sinkCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Force path-style addressing for compatibility with MinIO/Localstack
		if sinkCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	sink, err := archiveS3.NewS3Sink(ctx, archiveS3.S3SinkConfig{
		Client:    client,
		Bucket:    sinkCfg.Bucket,
		KeyPrefix: sinkCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 archive: %w", err)
	}

	log.Info("S3 archive initialized: bucket=%s, region=%s, prefix=%s",
		sinkCfg.Bucket, sinkCfg.Region, sinkCfg.KeyPrefix)
	return sink, nil
}
