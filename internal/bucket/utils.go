package bucket

import (
	"fmt"
	"path"
	"time"
)

const contentTypeJSON = "application/json"

const historyLayout = "20060102T150405Z"

var nowFunc = time.Now

func (b *Bucket) objectName() string {
	if b.ObjectName == "" {
		return defaultObjectName
	}
	return b.ObjectName
}

func (b *Bucket) currentKey() string {
	return path.Clean(path.Join(b.BaseFolder, b.objectName()))
}

func (b *Bucket) historyPrefix() string {
	return path.Clean(path.Join(b.BaseFolder, historyFolder)) + "/"
}

func (b *Bucket) historyKey(t time.Time) string {
	return b.historyPrefix() + t.UTC().Format(historyLayout) + path.Ext(b.objectName())
}

func (b *Bucket) getCDNURL(filePath string) string {
	return fmt.Sprintf("https://%s.%s/%s", b.S3BucketName, b.S3Endpoint, filePath)
}
