package helpers

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

// ImageMirror copies a stored place image to a CDN and returns its public URL.
type ImageMirror interface {
	Mirror(ctx context.Context, key string, data []byte) (string, error)
}

type CloudinaryMirror struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryMirror(cld *cloudinary.Cloudinary) *CloudinaryMirror {
	return &CloudinaryMirror{cld: cld, folder: PlacesFolder}
}

func (m *CloudinaryMirror) Mirror(ctx context.Context, key string, data []byte) (string, error) {
	res, err := m.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:   m.folder,
		PublicID: key,
		Tags:     []string{"secretspace"},
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed for %s: %w", key, err)
	}
	return res.SecureURL, nil
}

type SupabaseMirror struct {
	client *supabase.Client
	bucket string
}

func NewSupabaseMirror(client *supabase.Client, bucket string) *SupabaseMirror {
	return &SupabaseMirror{client: client, bucket: bucket}
}

func (m *SupabaseMirror) Mirror(ctx context.Context, key string, data []byte) (string, error) {
	objectPath := path.Join("places", key+".jpg")
	contentType := "image/jpeg"
	upsert := true

	_, err := m.client.Storage.UploadFile(m.bucket, objectPath, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("supabase upload failed for %s: %w", key, err)
	}
	return m.client.Storage.GetPublicUrl(m.bucket, objectPath).SignedURL, nil
}
