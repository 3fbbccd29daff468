package bucket

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// upload puts data under key and returns its public URL.
func (b *Bucket) upload(ctx context.Context, key string, data []byte) (string, error) {
	cacheControl := b.CacheControl
	if cacheControl == "" {
		cacheControl = defaultCacheControl
	}
	userMetaData := map[string]string{"x-amz-acl": "public-read"}

	r := bytes.NewReader(data)
	_, err := b.Client.PutObject(ctx, b.S3BucketName, key, r, int64(r.Len()), minio.PutObjectOptions{
		ContentType:  contentTypeJSON,
		CacheControl: cacheControl,
		UserMetadata: userMetaData,
	})
	if err != nil {
		return "", fmt.Errorf("error putting object %s: %w", key, err)
	}
	return b.getCDNURL(key), nil
}
