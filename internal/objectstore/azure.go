package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

var errAzureAccount = errors.New("azure endpoint or account name is required")

type azureProvider struct {
	cfg    Config
	client *container.Client
}

func newAzureProvider(_ context.Context, cfg Config) (Provider, error) {
	containerURL, err := buildAzureContainerURL(cfg)
	if err != nil {
		return nil, err
	}

	var client *container.Client
	switch {
	case strings.TrimSpace(cfg.AzureSASToken) != "":
		client, err = container.NewClientWithNoCredential(containerURL, nil)
	case strings.TrimSpace(cfg.AzureKey) != "":
		if strings.TrimSpace(cfg.AzureAccount) == "" {
			return nil, fmt.Errorf("azure account name is required for shared key auth")
		}

		credential, credErr := azblob.NewSharedKeyCredential(cfg.AzureAccount, cfg.AzureKey)
		if credErr != nil {
			return nil, fmt.Errorf("azblob.NewSharedKeyCredential: %w", credErr)
		}
		client, err = container.NewClientWithSharedKeyCredential(containerURL, credential, nil)
	default:
		credential, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("azidentity.NewDefaultAzureCredential: %w", credErr)
		}
		client, err = container.NewClient(containerURL, credential, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("azure container client: %w", err)
	}

	return &azureProvider{cfg: cfg, client: client}, nil
}

func buildAzureContainerURL(cfg Config) (string, error) {
	serviceURL := strings.TrimRight(strings.TrimSpace(cfg.AzureEndpoint), "/")
	if serviceURL == "" {
		if strings.TrimSpace(cfg.AzureAccount) == "" {
			return "", errAzureAccount
		}
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AzureAccount)
	}

	containerURL := fmt.Sprintf("%s/%s", serviceURL, cfg.Bucket)
	if token := strings.TrimPrefix(strings.TrimSpace(cfg.AzureSASToken), "?"); token != "" {
		containerURL = containerURL + "?" + token
	}

	return containerURL, nil
}

func (p *azureProvider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	options := &container.ListBlobsFlatOptions{}
	if remotePrefix := ResolveKey(p.cfg.Prefix, prefix); remotePrefix != "" {
		options.Prefix = &remotePrefix
	}

	var objects []ObjectInfo
	pager := p.client.NewListBlobsFlatPager(options)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure ListBlobsFlat: %w", err)
		}
		if resp.Segment == nil {
			continue
		}

		for _, item := range resp.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}

			info := ObjectInfo{Key: *item.Name}
			if props := item.Properties; props != nil {
				if props.ContentLength != nil {
					info.Size = *props.ContentLength
				}
				if props.LastModified != nil {
					info.LastModified = *props.LastModified
				}
				if props.ETag != nil {
					info.ETag = string(*props.ETag)
				}
			}
			objects = append(objects, info)
		}
	}

	return objects, nil
}

func (p *azureProvider) Upload(ctx context.Context, key string, localPath string) (ObjectInfo, error) {
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

	if _, err = p.client.NewBlockBlobClient(remoteKey).UploadFile(ctx, file, nil); err != nil {
		return ObjectInfo{}, fmt.Errorf("azure UploadFile %s: %w", remoteKey, err)
	}

	return ObjectInfo{Key: remoteKey, Size: stat.Size()}, nil
}

func (p *azureProvider) prefix() string {
	return p.cfg.Prefix
}

func (p *azureProvider) Close() error {
	return nil
}
