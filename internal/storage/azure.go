package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// blobClient is the subset of *azblob.Client the backend calls.
type blobClient interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
	URL() string
}

type Azure struct {
	client    blobClient
	container string
}

func NewAzure(connectionString, container string) (*Azure, error) {
	if strings.TrimSpace(connectionString) == "" || strings.TrimSpace(container) == "" {
		return nil, fmt.Errorf("%w: azure storage is not configured", ErrUnavailable)
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return newAzureWithClient(client, container), nil
}

func newAzureWithClient(client blobClient, container string) *Azure {
	return &Azure{client: client, container: container}
}

func (a *Azure) Name() string { return "azure" }

func (a *Azure) Upload(ctx context.Context, data []byte, originalName, mimeType string, hint ContextHint) (Object, error) {
	folder, locationID := NewLocation(originalName, mimeType, data, hint)
	contentType := DetectMIME(mimeType, data)
	_, err := a.client.UploadBuffer(ctx, a.container, locationID, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return Object{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Object{LocationID: locationID, URL: a.blobURL(locationID), Folder: folder}, nil
}

func (a *Azure) Delete(ctx context.Context, locationID string) error {
	if err := ValidateLocation(locationID); err != nil {
		return err
	}
	_, err := a.client.DeleteBlob(ctx, a.container, locationID, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (a *Azure) blobURL(locationID string) string {
	return strings.TrimRight(a.client.URL(), "/") + "/" + a.container + "/" + locationID
}
