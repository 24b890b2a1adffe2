package backend

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/nicolagi/scatterfs/internal/config"
	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
	log "github.com/sirupsen/logrus"
)

var _ Backend = (*s3Backend)(nil)

// s3Backend keeps the served tree in a bucket. The key for /a/b is
// "a/b"; directories are implicit in the key structure, so pruning
// empty ones is a no-op. Ranged reads use the Range header; ranged
// writes read-modify-write the object, which is as good as it gets
// over an object store and fine under the storage server's lock.
type s3Backend struct {
	accessKey string
	secretKey string
	region    string
	bucket    string
	client    *s3.S3
}

func newS3Backend(c *config.C) *s3Backend {
	return &s3Backend{
		accessKey: c.S3AccessKey,
		secretKey: c.S3SecretKey,
		region:    c.S3Region,
		bucket:    c.S3Bucket,
	}
}

func (b *s3Backend) List() ([]fspath.Path, error) {
	if err := b.ensureClient(); err != nil {
		return nil, err
	}
	var paths []fspath.Path
	input := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket)}
	err := b.client.ListObjectsV2Pages(input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			p, err := fspath.New("/" + aws.StringValue(obj.Key))
			if err != nil {
				log.WithFields(log.Fields{
					"key": aws.StringValue(obj.Key),
				}).Warning("Skipping key that does not map to a path")
				continue
			}
			paths = append(paths, p)
		}
		return true
	})
	if err != nil {
		return nil, fault.E(fault.IO, "could not list bucket %q: %v", b.bucket, err)
	}
	return paths, nil
}

func (b *s3Backend) Size(p fspath.Path) (int64, error) {
	if err := b.ensureClient(); err != nil {
		return 0, err
	}
	output, err := b.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(keyFor(p)),
	})
	if err != nil {
		return 0, b.wrap(p, err)
	}
	return aws.Int64Value(output.ContentLength), nil
}

func (b *s3Backend) ReadAt(p fspath.Path, offset int64, length int32) ([]byte, error) {
	size, err := b.Size(p)
	if err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 || offset+int64(length) > size {
		return nil, fault.E(fault.OutOfBounds, "%s: range [%d,%d) outside of %d bytes", p, offset, offset+int64(length), size)
	}
	if length == 0 {
		return []byte{}, nil
	}
	output, err := b.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(keyFor(p)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+int64(length)-1)),
	})
	if err != nil {
		return nil, b.wrap(p, err)
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			log.WithFields(log.Fields{
				"op":   "read",
				"path": p,
			}).Warning("Could not close response body")
		}
	}()
	data, err := ioutil.ReadAll(output.Body)
	if err != nil {
		return nil, fault.E(fault.IO, "could not read body for %q: %v", p, err)
	}
	return data, nil
}

func (b *s3Backend) WriteAt(p fspath.Path, offset int64, data []byte) error {
	if offset < 0 {
		return fault.E(fault.OutOfBounds, "%s: negative offset %d", p, offset)
	}
	size, err := b.Size(p)
	if err != nil {
		return err
	}
	current := []byte{}
	if size > 0 {
		current, err = b.getAll(p)
		if err != nil {
			return err
		}
	}
	end := offset + int64(len(data))
	if end < int64(len(current)) {
		end = int64(len(current))
	}
	grown := make([]byte, end)
	copy(grown, current)
	copy(grown[offset:], data)
	return b.put(p, grown)
}

func (b *s3Backend) Create(p fspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}
	if err := b.ensureClient(); err != nil {
		return false, err
	}
	_, err := b.Size(p)
	if err == nil {
		return false, nil
	}
	if !fault.Is(err, fault.NotFound) {
		return false, err
	}
	if err := b.put(p, []byte{}); err != nil {
		return false, err
	}
	return true, nil
}

func (b *s3Backend) Delete(p fspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}
	if err := b.ensureClient(); err != nil {
		return false, err
	}
	// The path may name an implicit directory, i.e., a key prefix.
	prefix := keyFor(p) + "/"
	var keys []string
	if _, err := b.Size(p); err == nil {
		keys = append(keys, keyFor(p))
	} else if !fault.Is(err, fault.NotFound) {
		return false, err
	}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}
	err := b.client.ListObjectsV2Pages(input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return false, fault.E(fault.IO, "could not list prefix %q: %v", prefix, err)
	}
	if len(keys) == 0 {
		return false, nil
	}
	for _, key := range keys {
		_, err := b.client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return false, fault.E(fault.IO, "could not delete %q: %v", key, err)
		}
	}
	return true, nil
}

func (b *s3Backend) PruneEmptyDirs() error {
	// Directories are implicit in key names; an empty one cannot
	// exist.
	return nil
}

func (b *s3Backend) getAll(p fspath.Path) ([]byte, error) {
	output, err := b.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(keyFor(p)),
	})
	if err != nil {
		return nil, b.wrap(p, err)
	}
	defer func() { _ = output.Body.Close() }()
	return ioutil.ReadAll(output.Body)
}

func (b *s3Backend) put(p fspath.Path, data []byte) error {
	_, err := b.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(keyFor(p)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fault.E(fault.IO, "could not put %q: %v", p, err)
	}
	return nil
}

func (b *s3Backend) wrap(p fspath.Path, err error) error {
	if rfErr, ok := err.(awserr.RequestFailure); ok {
		if rfErr.StatusCode() == http.StatusNotFound {
			return fault.E(fault.NotFound, "%s: no such file", p)
		}
	}
	return fault.E(fault.IO, "%s: %v", p, err)
}

func (b *s3Backend) ensureClient() error {
	if b.client != nil {
		return nil
	}
	creds := credentials.NewStaticCredentials(b.accessKey, b.secretKey, "")
	sess, err := session.NewSession(&aws.Config{
		Credentials: creds,
		Region:      aws.String(b.region),
		HTTPClient: &http.Client{
			Timeout: time.Minute,
		},
	})
	if err != nil {
		return fault.E(fault.IO, "could not create session: %v", err)
	}
	b.client = s3.New(sess)
	return nil
}

func keyFor(p fspath.Path) string {
	return strings.TrimPrefix(p.String(), "/")
}
