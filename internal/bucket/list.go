package bucket

import (
	"context"
	"sort"

	"github.com/minio/minio-go/v7"
)

// listKeys returns every object key under prefix, sorted ascending.
func (b *Bucket) listKeys(ctx context.Context, prefix string) ([]string, error) {
	objectCh := b.Client.ListObjects(ctx, b.S3BucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	keys := []string{}
	for o := range objectCh {
		if o.Err != nil {
			return nil, o.Err
		}
		keys = append(keys, o.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// expired returns the keys to drop so that only the newest keep remain.
// History keys sort chronologically.
func expired(sorted []string, keep int) []string {
	if keep <= 0 || len(sorted) <= keep {
		return nil
	}
	return sorted[:len(sorted)-keep]
}
