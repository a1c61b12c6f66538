package build

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/approutes/pkg/vfs"
)

// Sink stores emitted asset content at a slash-separated target path.
// Writes for different paths may run concurrently.
type Sink interface {
	Write(ctx context.Context, target string, content []byte) error
}

// Reader is implemented by sinks that can return what is currently stored
// at a target. Missing targets report an error wrapping fs.ErrNotExist.
type Reader interface {
	Read(ctx context.Context, target string) ([]byte, error)
}

// DefaultFileMode is the mode of newly written files.
const DefaultFileMode fs.FileMode = 0o644

// DiskSink writes assets to the local filesystem.
type DiskSink struct {
	root string
}

// NewDiskSink creates a sink that resolves target paths against root.
// An empty root uses target paths as host paths.
func NewDiskSink(root string) *DiskSink {
	return &DiskSink{root: root}
}

// Write implements Sink. The file is replaced atomically. A replaced file
// keeps its permissions; new files get DefaultFileMode.
func (s *DiskSink) Write(ctx context.Context, target string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := s.Path(target)
	mode := DefaultFileMode
	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() {
		mode = info.Mode().Perm()
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	// CreateTemp creates 0600 files.
	if err := f.Chmod(mode); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), dest)
}

// Read implements Reader.
func (s *DiskSink) Read(ctx context.Context, target string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path(target))
}

// Path returns the host path a target is written to.
func (s *DiskSink) Path(target string) string {
	if s.root == "" {
		return filepath.FromSlash(target)
	}
	return filepath.Join(s.root, filepath.FromSlash(target))
}

// PutObjectAPI is the subset of the S3 client used by S3Sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads assets to an S3 bucket.
//
// Example usage:
//
//	client := build.NewS3Client(build.S3Options{Region: "us-east-1"})
//	sink := build.NewS3Sink(client, "my-bucket", "deploys/42/")
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
	root   string
}

// NewS3Sink creates a sink that stores target paths as object keys under
// prefix.
func NewS3Sink(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Relative makes object keys relative to root. Targets outside root keep
// their full path.
func (s *S3Sink) Relative(root string) *S3Sink {
	s.root = root
	return s
}

// Key returns the object key for a target path.
func (s *S3Sink) Key(target string) string {
	if s.root != "" {
		if rel, ok := vfs.Rel(s.root, target); ok && rel != "" {
			return s.prefix + rel
		}
	}
	return s.prefix + strings.TrimPrefix(target, "/")
}

// Write implements Sink.
func (s *S3Sink) Write(ctx context.Context, target string, content []byte) error {
	contentType := mime.TypeByExtension(path.Ext(target))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.Key(target)),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region   string
	Endpoint string

	// PathStyle addresses buckets as endpoint/bucket instead of
	// bucket.endpoint, as S3-compatible stores usually require.
	PathStyle bool

	// Credentials defaults to the AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
	// and AWS_SESSION_TOKEN environment variables.
	Credentials aws.CredentialsProvider
}

// NewS3Client creates an S3 client from explicit options.
func NewS3Client(opts S3Options) *s3.Client {
	creds := opts.Credentials
	if creds == nil {
		creds = aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials))
	}

	options := s3.Options{
		Region:       opts.Region,
		Credentials:  creds,
		UsePathStyle: opts.PathStyle,
	}
	if opts.Endpoint != "" {
		options.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return s3.New(options)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "Environment",
	}, nil
}

// MemorySink keeps written assets in memory. It is used for dry runs.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, target string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[target] = append([]byte(nil), content...)
	return nil
}

// Read implements Reader.
func (s *MemorySink) Read(_ context.Context, target string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[target]
	if !ok {
		return nil, fmt.Errorf("%s: %w", target, fs.ErrNotExist)
	}
	return append([]byte(nil), content...), nil
}

// Files returns a copy of the written files.
func (s *MemorySink) Files() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.files))
	for k, v := range s.files {
		out[k] = v
	}
	return out
}
