package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
)

// objectAPI is the part of *s3.Client the file service calls.
type objectAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// FileStorageConfig describes the S3-compatible backend.
type FileStorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	URLExpiry time.Duration
}

// Upload is a single file handed to FileService.Upload.
type Upload struct {
	FileType    string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileService stores user files under "<userID>/<fileType>/<uuid>-<name>".
// Every key it hands out or accepts is scoped to the calling user.
type FileService struct {
	objects   objectAPI
	presign   presignAPI
	bucket    string
	urlExpiry time.Duration
	log       logging.Logger

	mu          sync.Mutex
	bucketReady bool
}

// NewFileService builds the S3 client from cfg with static credentials.
func NewFileService(ctx context.Context, cfg FileStorageConfig, log logging.Logger) (*FileService, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return newFileService(client, newS3PresignClient(client), cfg, log), nil
}

func newFileService(objects objectAPI, presign presignAPI, cfg FileStorageConfig, log logging.Logger) *FileService {
	if log == nil {
		log = logging.Nop{}
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &FileService{
		objects:   objects,
		presign:   presign,
		bucket:    cfg.Bucket,
		urlExpiry: expiry,
		log:       log,
	}
}

// ensureBucket creates the bucket on first use. A failed attempt is retried
// on the next call.
func (s *FileService) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bucketReady {
		return nil
	}

	if _, err := s.objects.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		s.bucketReady = true
		return nil
	}

	_, err := s.objects.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if !errors.As(err, &owned) && !errors.As(err, &exists) {
			return fmt.Errorf("s3 error: create bucket: %w", err)
		}
	}

	s.log.Info(ctx, "bucket ready", "bucket", s.bucket)
	s.bucketReady = true
	return nil
}

// Upload stores the file and returns its object name.
func (s *FileService) Upload(ctx context.Context, userID string, in Upload) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: missing principal", common.ErrUnauthorized)
	}
	if !validSegment(in.FileType) {
		return "", fmt.Errorf("%w: fileType is required and must not contain '/'", common.ErrValidation)
	}
	name := baseName(in.FileName)
	if name == "" {
		return "", fmt.Errorf("%w: file name is required", common.ErrValidation)
	}
	if in.Body == nil {
		return "", fmt.Errorf("%w: file is required", common.ErrValidation)
	}

	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s/%s-%s", userID, in.FileType, uuid.NewString(), name)
	put := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   in.Body,
	}
	if in.ContentType != "" {
		put.ContentType = aws.String(in.ContentType)
	}
	if in.Size >= 0 {
		put.ContentLength = aws.Int64(in.Size)
	}

	if _, err := s.objects.PutObject(ctx, put); err != nil {
		return "", fmt.Errorf("s3 error: put object: %w", err)
	}
	return key, nil
}

// Delete removes one of the caller's objects.
func (s *FileService) Delete(ctx context.Context, userID, objectName string) error {
	if err := checkOwnership(userID, objectName); err != nil {
		return err
	}
	_, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return fmt.Errorf("s3 error: delete object: %w", err)
	}
	return nil
}

// URL returns a presigned GET URL for one of the caller's objects.
func (s *FileService) URL(ctx context.Context, userID, objectName string) (string, error) {
	if err := checkOwnership(userID, objectName); err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectName),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("s3 error: presign get: %w", err)
	}
	return req.URL, nil
}

func checkOwnership(userID, objectName string) error {
	if userID == "" {
		return fmt.Errorf("%w: missing principal", common.ErrUnauthorized)
	}
	if objectName == "" {
		return fmt.Errorf("%w: objectName is required", common.ErrValidation)
	}
	if path.Clean(objectName) != objectName || !strings.HasPrefix(objectName, userID+"/") {
		return fmt.Errorf("%w: object does not belong to the caller", common.ErrForbidden)
	}
	return nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// baseName strips any client-side directory from an uploaded file name.
func baseName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
