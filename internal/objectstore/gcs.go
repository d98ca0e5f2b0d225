package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type gcsProvider struct {
	cfg    Config
	client *storage.Client
}

func newGCSProvider(ctx context.Context, cfg Config) (Provider, error) {
	var options []option.ClientOption
	if strings.TrimSpace(cfg.GCPCredentialsJSON) != "" {
		options = append(options, option.WithCredentialsJSON([]byte(cfg.GCPCredentialsJSON)))
	} else if strings.TrimSpace(cfg.GCPCredentialsFile) != "" {
		options = append(options, option.WithCredentialsFile(cfg.GCPCredentialsFile))
	}
	if strings.TrimSpace(cfg.Endpoint) != "" {
		options = append(options, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	return &gcsProvider{cfg: cfg, client: client}, nil
}

func (p *gcsProvider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	remotePrefix := ResolveKey(p.cfg.Prefix, prefix)
	it := p.client.Bucket(p.cfg.Bucket).Objects(ctx, &storage.Query{Prefix: remotePrefix})

	var objects []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs Objects: %w", err)
		}

		objects = append(objects, ObjectInfo{
			Key:          attrs.Name,
			Size:         attrs.Size,
			ETag:         attrs.Etag,
			LastModified: attrs.Updated,
		})
	}

	return objects, nil
}

func (p *gcsProvider) Upload(ctx context.Context, key string, localPath string) (ObjectInfo, error) {
	remoteKey := ResolveKey(p.cfg.Prefix, key)

	file, err := os.Open(localPath)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return ObjectInfo{}, err
	}

	writer := p.client.Bucket(p.cfg.Bucket).Object(remoteKey).NewWriter(ctx)
	if _, err = io.Copy(writer, file); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return ObjectInfo{}, closeErr
		}
		return ObjectInfo{}, fmt.Errorf("gcs Upload %s: %w", remoteKey, err)
	}

	if err = writer.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("gcs Upload %s: %w", remoteKey, err)
	}

	return ObjectInfo{Key: remoteKey, Size: stat.Size()}, nil
}

func (p *gcsProvider) prefix() string {
	return p.cfg.Prefix
}

func (p *gcsProvider) Close() error {
	return p.client.Close()
}
