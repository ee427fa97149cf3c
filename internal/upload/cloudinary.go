// Package upload stores wardrobe and generated images on Cloudinary.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	wardrobeFolder = "fit-check/wardrobe"

	// Images are downscaled server-side so the catalog never serves
	// multi-megabyte originals.
	uploadTransformation = "c_fit,w_800,h_800,q_auto"
)

// Image is a stored image. PublicID is what Cloudinary needs to delete it
// later, URL is what clients render.
type Image struct {
	URL      string
	PublicID string
}

// Store uploads and deletes images on Cloudinary.
type Store struct {
	client *cloudinary.Cloudinary
}

func NewStore(cloudName, apiKey, apiSecret string) (*Store, error) {
	client, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &Store{client: client}, nil
}

// Upload stores the image bytes and returns the hosted copy.
func (s *Store) Upload(ctx context.Context, data []byte) (*Image, error) {
	resp, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:         wardrobeFolder,
		Transformation: uploadTransformation,
		ResourceType:   "image",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("failed to upload image: %s", resp.Error.Message)
	}

	return &Image{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

// Delete removes a hosted image. Callers treat failures as best-effort
// cleanup: log and move on, the orphaned asset costs storage, not
// correctness.
func (s *Store) Delete(ctx context.Context, publicID string) error {
	resp, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", publicID, err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("failed to delete image %s: %s", publicID, resp.Result)
	}
	return nil
}

// PublicIDFromURL recovers the public id of an asset from its delivery URL.
// Delete paths fall back to it for rows that lack a stored public id, such as
// imported data. Returns "" when the URL does not look like a Cloudinary
// delivery URL.
func PublicIDFromURL(url string) string {
	// .../image/upload/<transformations>/v123/<folder>/<name>.<ext>
	idx := strings.Index(url, "/upload/")
	if idx < 0 {
		return ""
	}
	rest := url[idx+len("/upload/"):]

	parts := strings.Split(rest, "/")
	for len(parts) > 0 {
		p := parts[0]
		if strings.HasPrefix(p, "v") && isDigits(p[1:]) {
			parts = parts[1:]
			break
		}
		if strings.ContainsAny(p, ",_") && !strings.Contains(p, ".") {
			parts = parts[1:]
			continue
		}
		break
	}
	if len(parts) == 0 {
		return ""
	}

	id := strings.Join(parts, "/")
	if dot := strings.LastIndex(id, "."); dot > 0 {
		id = id[:dot]
	}
	return id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
