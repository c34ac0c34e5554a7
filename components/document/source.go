package document

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// Raw is the undecoded content of a source.
type Raw struct {
	Data []byte
	Meta map[string]string
}

// FromFile reads a local file.
func FromFile(_ context.Context, fname string) (*Raw, error) {
	info, err := os.Stat(fname)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.Errorf("%s is a directory", fname)
	}
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	return &Raw{
		Data: data,
		Meta: map[string]string{
			MetaSource:   "file",
			MetaFilename: filepath.Base(fname),
			"modtime":    strconv.FormatInt(info.ModTime().Unix(), 10),
		},
	}, nil
}

// FromHTTP downloads link with a GET request. A nil client uses http.DefaultClient.
func FromHTTP(ctx context.Context, client *http.Client, link string) (*Raw, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("GET %s: %s", link, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Raw{
		Data: data,
		Meta: map[string]string{
			MetaSource: "http",
			MetaURL:    link,
		},
	}, nil
}

// S3API is the part of *s3.Client used to fetch objects.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// FromS3 downloads an object.
func FromS3(ctx context.Context, client S3API, bucket, key string) (*Raw, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get object from S3")
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return &Raw{
		Data: data,
		Meta: map[string]string{
			MetaSource: "s3",
			MetaBucket: bucket,
			MetaKey:    key,
		},
	}, nil
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (string, string, bool) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", false
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
