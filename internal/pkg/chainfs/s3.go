package chainfs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mattetti/filebuffer"
	"github.com/pkg/errors"
)

const (
	s3ReadChunkSize    = 20 * 1024 * 1024
	s3StatCacheSize    = 1024
	globMetacharacters = "*?[{"
)

// S3FileSystem is a FileSystem backed by AWS S3. Paths are full
// "s3://bucket/key" URIs.
type S3FileSystem struct {
	client    *s3.S3
	statCache *lru.Cache
}

func parseS3URI(uri string) (bucket string, key string, err error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	if trimmed == uri {
		return "", "", errors.Errorf("not an s3 location: %s", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	return bucket, key, nil
}

// ListFiles lists objects matching pathGlob. Objects under a directory-like
// prefix are listed recursively, and doublestar glob syntax is supported in
// the key.
func (s *S3FileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	bucket, keyGlob, err := parseS3URI(pathGlob)
	if err != nil {
		return nil, err
	}

	prefix := keyGlob
	if idx := strings.IndexAny(keyGlob, globMetacharacters); idx != -1 {
		prefix = keyGlob[:idx]
	}

	// "s3://bucket" and "s3://bucket/" list the whole bucket
	listAll := keyGlob == ""
	dirPrefix := strings.TrimSuffix(keyGlob, "/") + "/"
	files := make([]FileInfo, 0)
	params := &s3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	err = s.client.ListObjectsPages(params,
		func(page *s3.ListObjectsOutput, _ bool) bool {
			for _, object := range page.Contents {
				key := *object.Key
				matched, _ := doublestar.Match(keyGlob, key)
				if listAll || matched || key == keyGlob || strings.HasPrefix(key, dirPrefix) {
					files = append(files, FileInfo{
						Name: fmt.Sprintf("s3://%s/%s", bucket, key),
						Size: *object.Size,
					})
				}
			}
			return true
		})

	return files, err
}

// OpenReader opens the object at filePath, positioned at startAt. The object
// is fetched in ranged chunks as the reader is consumed.
func (s *S3FileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	fInfo, err := s.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if startAt >= fInfo.Size {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	bucket, key, err := parseS3URI(filePath)
	if err != nil {
		return nil, err
	}

	reader := &s3Reader{
		client:    s.client,
		bucket:    bucket,
		key:       key,
		offset:    startAt,
		chunkSize: s3ReadChunkSize,
		totalSize: fInfo.Size,
	}
	err = reader.loadNextChunk()
	return reader, err
}

// OpenWriter opens a writer for filePath. Written data is buffered in memory
// and uploaded when the writer is closed.
func (s *S3FileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	bucket, key, err := parseS3URI(filePath)
	if err != nil {
		return nil, err
	}
	return &s3Writer{
		client: s.client,
		bucket: bucket,
		key:    key,
		buf:    filebuffer.New(nil),
	}, nil
}

// Stat returns information about the object at filePath. Results are cached:
// a Stat is a ListObjects round trip, and the executor stats the same scratch
// locations repeatedly while walking a chain.
func (s *S3FileSystem) Stat(filePath string) (FileInfo, error) {
	if cached, ok := s.statCache.Get(filePath); ok {
		return cached.(FileInfo), nil
	}

	bucket, key, err := parseS3URI(filePath)
	if err != nil {
		return FileInfo{}, err
	}

	params := &s3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(key),
	}
	result, err := s.client.ListObjects(params)
	if err != nil {
		return FileInfo{}, err
	}

	for _, object := range result.Contents {
		if *object.Key == key {
			fInfo := FileInfo{
				Name: filePath,
				Size: *object.Size,
			}
			s.statCache.Add(filePath, fInfo)
			return fInfo, nil
		}
	}

	return FileInfo{}, errors.Errorf("no object found at %s", filePath)
}

// Init connects to S3 using the ambient AWS credentials.
func (s *S3FileSystem) Init() error {
	os.Setenv("AWS_SDK_LOAD_CONFIG", "true")
	sess, err := session.NewSession()
	if err != nil {
		return err
	}
	s.client = s3.New(sess)

	s.statCache, err = lru.New(s3StatCacheSize)
	return err
}

// Join joins path elements into an s3 URI.
func (s *S3FileSystem) Join(elem ...string) string {
	joined := path.Join(elem...)
	// path.Join collapses the scheme's double slash
	return strings.Replace(joined, "s3:/", "s3://", 1)
}
