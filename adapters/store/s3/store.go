package stores3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/goliatone/go-invoice/invoice"
)

const metaFilename = "Filename"

// ObjectAPI is the subset of the S3 client used by Store.
type ObjectAPI interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
	GetObjectRequest(input *s3.GetObjectInput) (*request.Request, *s3.GetObjectOutput)
}

// Uploader is the subset of s3manager.Uploader used by Store.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// Config configures an S3 artifact store.
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
	// PathStyle forces path-style addressing, needed by most S3-compatible
	// servers.
	PathStyle bool
}

// Store keeps invoice artifacts in an S3 bucket and shares them through
// presigned GET URLs.
type Store struct {
	Bucket   string
	Prefix   string
	Client   ObjectAPI
	Uploader Uploader
	Now      func() time.Time
}

// New creates a store from an AWS session.
func New(sess *session.Session, bucket, prefix string) *Store {
	client := s3.New(sess)
	return &Store{
		Bucket:   bucket,
		Prefix:   prefix,
		Client:   client,
		Uploader: s3manager.NewUploaderWithClient(client),
		Now:      time.Now,
	}
}

// NewFromConfig builds the AWS session from cfg. Credentials come from the
// default provider chain.
func NewFromConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, invoice.NewError(invoice.KindValidation, "s3 bucket is required", nil)
	}
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.PathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, invoice.NewError(invoice.KindExternal, "create aws session", err)
	}
	return New(sess, cfg.Bucket, cfg.Prefix), nil
}

// Put uploads an artifact.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta invoice.ArtifactMeta) (invoice.ArtifactRef, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return invoice.ArtifactRef{}, err
	}
	if s.Uploader == nil {
		return invoice.ArtifactRef{}, invoice.NewError(invoice.KindInternal, "s3 uploader not configured", nil)
	}

	counter := &countingReader{r: r}
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(objectKey),
		Body:   counter,
	}
	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}
	if meta.Filename != "" {
		input.ContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", meta.Filename))
		input.Metadata = map[string]*string{metaFilename: aws.String(meta.Filename)}
	}
	if !meta.ExpiresAt.IsZero() {
		input.Expires = aws.Time(meta.ExpiresAt)
	}

	if _, err := s.Uploader.UploadWithContext(ctx, input); err != nil {
		return invoice.ArtifactRef{}, invoice.NewError(invoice.KindExternal, fmt.Sprintf("upload %q", key), err)
	}

	meta.Size = counter.n
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	return invoice.ArtifactRef{Key: key, Meta: meta}, nil
}

// Open downloads an artifact.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, invoice.ArtifactMeta, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, invoice.ArtifactMeta{}, err
	}
	if s.Client == nil {
		return nil, invoice.ArtifactMeta{}, invoice.NewError(invoice.KindInternal, "s3 client not configured", nil)
	}

	out, err := s.Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, invoice.ArtifactMeta{}, invoice.NewError(invoice.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return nil, invoice.ArtifactMeta{}, invoice.NewError(invoice.KindExternal, fmt.Sprintf("download %q", key), err)
	}

	meta := invoice.ArtifactMeta{
		ContentType: aws.StringValue(out.ContentType),
		Size:        aws.Int64Value(out.ContentLength),
		CreatedAt:   aws.TimeValue(out.LastModified),
		Filename:    aws.StringValue(out.Metadata[metaFilename]),
	}
	if meta.Filename == "" {
		meta.Filename = path.Base(objectKey)
	}
	return out.Body, meta, nil
}

// Delete removes an artifact.
func (s *Store) Delete(ctx context.Context, key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if s.Client == nil {
		return invoice.NewError(invoice.KindInternal, "s3 client not configured", nil)
	}
	_, err = s.Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return invoice.NewError(invoice.KindExternal, fmt.Sprintf("delete %q", key), err)
	}
	return nil
}

// SignedURL presigns a GET request for the artifact.
func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", invoice.NewError(invoice.KindValidation, "signed URL TTL is required", nil)
	}
	if s.Client == nil {
		return "", invoice.NewError(invoice.KindInternal, "s3 client not configured", nil)
	}
	req, _ := s.Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(objectKey),
	})
	link, err := req.Presign(ttl)
	if err != nil {
		return "", invoice.NewError(invoice.KindExternal, fmt.Sprintf("presign %q", key), err)
	}
	return link, nil
}

func (s *Store) objectKey(key string) (string, error) {
	if s == nil {
		return "", invoice.NewError(invoice.KindInternal, "store is nil", nil)
	}
	if strings.TrimSpace(s.Bucket) == "" {
		return "", invoice.NewError(invoice.KindValidation, "s3 bucket is required", nil)
	}
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if key == "" || clean == "" {
		return "", invoice.NewError(invoice.KindValidation, "artifact key is required", nil)
	}
	prefix := strings.Trim(s.Prefix, "/")
	if prefix == "" {
		return clean, nil
	}
	return prefix + "/" + clean, nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
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
