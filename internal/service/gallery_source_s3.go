package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API 是 S3Source 用到的 S3 客户端方法子集。
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Options 为 NewS3Source 提供配置。
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Source 从 <bucket>/<prefix>/<galleryID>/ 读取图集。
type S3Source struct {
	client        s3API
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewS3Source 使用默认 AWS 凭证链创建客户端，提供静态密钥时优先使用。
func NewS3Source(ctx context.Context, opts S3Options) (*S3Source, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	publicBase := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if publicBase == "" {
		endpoint := strings.TrimRight(opts.Endpoint, "/")
		if endpoint == "" {
			endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", opts.Region)
		}
		publicBase = endpoint + "/" + opts.Bucket
	}

	return newS3SourceWithClient(client, opts.Bucket, opts.Prefix, publicBase), nil
}

func newS3SourceWithClient(client s3API, bucket, prefix, publicBaseURL string) *S3Source {
	return &S3Source{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(strings.TrimSpace(prefix), "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *S3Source) key(galleryID int, filename string) string {
	return path.Join(s.prefix, galleryDir(galleryID), filename)
}

func (s *S3Source) ReadManifest(ctx context.Context, galleryID int) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(galleryID, ManifestFilename)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrManifestNotFound
		}
		return nil, fmt.Errorf("get manifest for gallery %d: %w", galleryID, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read manifest for gallery %d: %w", galleryID, err)
	}
	return data, nil
}

func (s *S3Source) Exists(ctx context.Context, galleryID int, filename string) (bool, error) {
	if err := validateFilename(filename); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(galleryID, filename)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Source) OpenAsset(ctx context.Context, galleryID int, filename string) (io.ReadCloser, string, error) {
	if err := validateFilename(filename); err != nil {
		return nil, "", err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(galleryID, filename)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, "", ErrAssetNotFound
		}
		return nil, "", fmt.Errorf("get asset %s: %w", filename, err)
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = contentTypeFor(filename)
	}
	return out.Body, contentType, nil
}

func (s *S3Source) MediaRef(galleryID int, filename string) string {
	return s.publicBaseURL + "/" + path.Join(s.prefix, galleryDir(galleryID), url.PathEscape(filename))
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
