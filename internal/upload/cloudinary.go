package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary implements Uploader against the Cloudinary upload API
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary creates an uploader with fail-fast credential validation
func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("upload: cloudinary credentials are required")
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("upload: cloudinary init: %w", err)
	}

	slog.Info("upload: cloudinary configured", "cloud_name", cloudName)
	return &Cloudinary{cld: cld}, nil
}

// Upload stores an encoded image and returns its secure URL
func (c *Cloudinary) Upload(ctx context.Context, data []byte, publicID, folder string) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     publicID,
		Folder:       folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload: rejected: %s", resp.Error.Message)
	}

	slog.Info("upload: image stored",
		"public_id", publicID,
		"folder", folder,
		"bytes", len(data),
		"url", resp.SecureURL,
	)
	return resp.SecureURL, nil
}
