// Package images keeps a copy of each product's main image and a thumbnail.
package images

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

const thumbnailWidth = 200

// Bucket is the object storage the images are written to.
type Bucket interface {
	Write(ctx context.Context, name, contentType string, data []byte) error
}

// Store saves product images keyed by product id. A Store without a bucket
// accepts every call and writes nothing.
type Store struct {
	bucket Bucket
	logger logrus.FieldLogger
}

func NewStore(bucket Bucket, logger logrus.FieldLogger) *Store {
	return &Store{bucket: bucket, logger: logger.WithField("module", "images")}
}

func (s *Store) Enabled() bool { return s != nil && s.bucket != nil }

func ObjectName(productID int64) string {
	return "products/" + strconv.FormatInt(productID, 10) + ".jpg"
}

func ThumbnailName(productID int64) string {
	return "products/thumbnails/" + strconv.FormatInt(productID, 10) + ".jpg"
}

// Save overwrites the product's image and thumbnail.
func (s *Store) Save(ctx context.Context, productID int64, data []byte, contentType string) error {
	if !s.Enabled() {
		return nil
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if err := s.bucket.Write(ctx, ObjectName(productID), contentType, data); err != nil {
		return fmt.Errorf("write image %d: %w", productID, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image %d: %w", productID, err)
	}
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return fmt.Errorf("encode thumbnail %d: %w", productID, err)
	}
	if err := s.bucket.Write(ctx, ThumbnailName(productID), "image/jpeg", buf.Bytes()); err != nil {
		return fmt.Errorf("write thumbnail %d: %w", productID, err)
	}
	s.logger.WithField("product_id", productID).Debug("product image stored")
	return nil
}
