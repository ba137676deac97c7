package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/princinho/smartshop/config"
	"google.golang.org/api/option"
)

// ImageUploader stores product images and hands back their public URL.
type ImageUploader interface {
	Upload(ctx context.Context, productName string, fh *multipart.FileHeader, contentType string) (string, error)
	// Delete removes the object behind a URL previously returned by Upload.
	Delete(ctx context.Context, publicURL string) error
}

// NewImageUploader returns nil when no storage driver is configured.
func NewImageUploader(ctx context.Context, cfg config.StorageConfig) (ImageUploader, error) {
	switch cfg.Driver {
	case config.StorageDriverR2:
		return NewR2Uploader(ctx, cfg)
	case config.StorageDriverGCS:
		return NewGCSUploader(ctx, cfg)
	default:
		return nil, nil
	}
}

func productObjectName(productName, ext string) string {
	slug := GenerateSlug(productName)
	if slug == "" {
		slug = "product"
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("products/%s/%d-%s%s", slug, time.Now().UTC().Unix(), uuid.New().String(), ext)
}

// R2Uploader writes to a Cloudflare R2 bucket through the S3 API.
type R2Uploader struct {
	S3           *s3.Client
	Bucket       string
	PublicDomain string
}

func NewR2Uploader(ctx context.Context, cfg config.StorageConfig) (*R2Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, ""),
		),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
		o.UsePathStyle = true // required for R2
	})

	return &R2Uploader{
		S3:           client,
		Bucket:       cfg.R2Bucket,
		PublicDomain: strings.TrimRight(cfg.R2PublicDomain, "/"),
	}, nil
}

func (u *R2Uploader) Upload(ctx context.Context, productName string, fh *multipart.FileHeader, contentType string) (string, error) {
	objectName := productObjectName(productName, strings.ToLower(filepath.Ext(fh.Filename)))

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	_, err = u.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.Bucket),
		Key:           aws.String(objectName),
		Body:          f,
		ContentLength: aws.Int64(fh.Size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", fh.Filename, err)
	}
	return u.publicURL(objectName), nil
}

func (u *R2Uploader) Delete(ctx context.Context, publicURL string) error {
	obj, err := u.objectName(publicURL)
	if err != nil {
		return err
	}
	_, err = u.S3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(obj),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", obj, err)
	}
	return nil
}

func (u *R2Uploader) publicURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", u.PublicDomain, u.Bucket, objectName)
}

func (u *R2Uploader) objectName(raw string) (string, error) {
	prefix := u.PublicDomain + "/" + u.Bucket + "/"
	if u.PublicDomain == "" || !strings.HasPrefix(raw, prefix) {
		return "", fmt.Errorf("not a recognised R2 public url")
	}
	return strings.TrimPrefix(raw, prefix), nil
}

// GCSUploader writes to a Google Cloud Storage bucket.
type GCSUploader struct {
	Client *storage.Client
	Bucket string
}

func NewGCSUploader(ctx context.Context, cfg config.StorageConfig) (*GCSUploader, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSUploader{Client: client, Bucket: cfg.GCSBucket}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, productName string, fh *multipart.FileHeader, contentType string) (string, error) {
	objectName := productObjectName(productName, strings.ToLower(filepath.Ext(fh.Filename)))

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	w := u.Client.Bucket(u.Bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload close: %w", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.Bucket, objectName), nil
}

func (u *GCSUploader) Delete(ctx context.Context, publicURL string) error {
	obj, err := ObjectNameFromGCSPublicURL(u.Bucket, publicURL)
	if err != nil {
		return err
	}
	if err := u.Client.Bucket(u.Bucket).Object(obj).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", obj, err)
	}
	return nil
}

func ObjectNameFromGCSPublicURL(bucket string, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	host := strings.ToLower(u.Host)
	path := strings.TrimPrefix(u.Path, "/")

	// storage.googleapis.com/<bucket>/<object>
	if host == "storage.googleapis.com" {
		prefix := bucket + "/"
		if !strings.HasPrefix(path, prefix) {
			return "", fmt.Errorf("url bucket mismatch")
		}
		return strings.TrimPrefix(path, prefix), nil
	}

	// <bucket>.storage.googleapis.com/<object>
	if host == strings.ToLower(bucket)+".storage.googleapis.com" {
		if path == "" {
			return "", fmt.Errorf("missing object path")
		}
		return path, nil
	}

	return "", fmt.Errorf("not a gcs public url")
}

// DeleteImageQuietly is used when an old image becomes unreachable; a
// failure leaves an orphaned object and is only logged.
func DeleteImageQuietly(ctx context.Context, up ImageUploader, publicURL string) {
	if up == nil || publicURL == "" {
		return
	}
	if err := up.Delete(ctx, publicURL); err != nil {
		log.Printf("WARN: delete image %q: %v", publicURL, err)
	}
}
