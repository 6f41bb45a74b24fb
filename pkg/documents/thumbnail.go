package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	"invictcrm/pkg/notify"
	"invictcrm/pkg/storage"
	"invictcrm/pkg/store"
)

const thumbnailWidth = 320

// ThumbnailKey is where the preview of key is stored.
func ThumbnailKey(key string) string {
	return key + ".thumb.jpg"
}

// ProcessUpload renders a JPEG preview of an uploaded image and records its
// key on the document. Missing objects or documents are not retried.
func (s *Service) ProcessUpload(ctx context.Context, p notify.ProcessUpload) error {
	rc, err := s.storage.Get(ctx, p.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("process upload: object missing", "document_id", p.DocumentID, "key", p.StorageKey)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch %s: %w", p.StorageKey, err)
	}
	defer rc.Close()

	img, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	if err != nil {
		s.log.Warn("process upload: not a decodable image", "document_id", p.DocumentID, "err", err)
		return nil
	}
	if img.Bounds().Dx() > thumbnailWidth {
		img = imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	key := ThumbnailKey(p.StorageKey)
	if err := s.storage.Put(ctx, key, "image/jpeg", &buf); err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}
	if _, err := s.store.UpdateDocument(ctx, p.DocumentID, store.DocumentPatch{ThumbnailKey: &key}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("record thumbnail: %w", err)
	}
	s.log.Info("thumbnail created", "document_id", p.DocumentID, "key", key)
	return nil
}
