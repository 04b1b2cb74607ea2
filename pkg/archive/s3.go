package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds the S3 archive settings.
type Config struct {
	Bucket    string `env:"ARCHIVE_BUCKET"`
	Prefix    string `env:"ARCHIVE_PREFIX" envDefault:"messages"`
	Region    string `env:"ARCHIVE_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"ARCHIVE_ENDPOINT"`
	AccessKey string `env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"ARCHIVE_SECRET_KEY"`
	PathStyle bool   `env:"ARCHIVE_PATH_STYLE"`
}

// Enabled reports whether an archive bucket is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

func (c Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}

// ObjectAPI is the subset of the S3 client the archive uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Archive implements Archive on S3-compatible storage.
type S3Archive struct {
	client    ObjectAPI
	presigner *s3.PresignClient
	cfg       Config
}

// New creates an S3 archive with static credentials.
func New(cfg Config) (*S3Archive, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = cfg.Region
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		}
	})

	a := NewWithClient(client, cfg)
	a.presigner = s3.NewPresignClient(client)
	return a, nil
}

// NewWithClient creates an archive over a custom client. Presigned URLs are
// unavailable unless the archive was built by New.
func NewWithClient(client ObjectAPI, cfg Config) *S3Archive {
	return &S3Archive{client: client, cfg: cfg}
}

// Store implements Archive.
func (a *S3Archive) Store(ctx context.Context, e Entry) error {
	if e.RecordID == "" {
		return ErrInvalidEntry
	}

	meta, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("archive: encode metadata: %w", err)
	}

	objects := []struct {
		part        Part
		contentType string
		body        []byte
	}{
		{PartHTML, "text/html; charset=utf-8", []byte(e.HTML)},
		{PartText, "text/plain; charset=utf-8", []byte(e.Text)},
		{PartMeta, "application/json", meta},
	}
	for _, o := range objects {
		if len(o.body) == 0 {
			continue
		}
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(a.cfg.Bucket),
			Key:           aws.String(Key(a.cfg.Prefix, e.RecordID, o.part)),
			Body:          bytes.NewReader(o.body),
			ContentLength: aws.Int64(int64(len(o.body))),
			ContentType:   aws.String(o.contentType),
		})
		if err != nil {
			return wrapS3Error(err, ErrUploadFailed)
		}
	}
	return nil
}

// Open implements Archive.
func (a *S3Archive) Open(ctx context.Context, recordID string, part Part) (io.ReadCloser, error) {
	if err := validPart(part); err != nil {
		return nil, err
	}
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(Key(a.cfg.Prefix, recordID, part)),
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrNotFound)
	}
	return out.Body, nil
}

// URL returns a presigned GET URL for a stored part.
func (a *S3Archive) URL(ctx context.Context, recordID string, part Part, expiry time.Duration) (string, error) {
	if a.presigner == nil {
		return "", ErrPresignFailed
	}
	if err := validPart(part); err != nil {
		return "", err
	}
	res, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(Key(a.cfg.Prefix, recordID, part)),
	}, func(o *s3.PresignOptions) { o.Expires = expiry })
	if err != nil {
		return "", wrapS3Error(err, ErrPresignFailed)
	}
	return res.URL, nil
}

var _ Archive = (*S3Archive)(nil)
