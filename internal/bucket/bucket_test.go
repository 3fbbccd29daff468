package bucket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves the handful of S3 calls Publish makes, path-style.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	q := r.URL.Query()
	switch {
	case r.Method == http.MethodPut && len(parts) == 2:
		body, _ := io.ReadAll(r.Body)
		f.objects[parts[1]] = string(body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete && len(parts) == 2:
		delete(f.objects, parts[1])
		f.deleted = append(f.deleted, parts[1])
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && q.Has("list-type"):
		keys := []string{}
		for k := range f.objects {
			if strings.HasPrefix(k, q.Get("prefix")) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		fmt.Fprintf(&sb, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>", parts[0], q.Get("prefix"), len(keys))
		for _, k := range keys {
			fmt.Fprintf(&sb, `<Contents><Key>%s</Key><LastModified>2026-10-19T06:00:00.000Z</LastModified><ETag>"x"</ETag><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>`, k, len(f.objects[k]))
		}
		sb.WriteString("</ListBucketResult>")
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, sb.String())
	case r.Method == http.MethodPost && q.Has("delete"):
		body, _ := io.ReadAll(r.Body)
		var sb strings.Builder
		sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><DeleteResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		for _, chunk := range strings.Split(string(body), "<Key>")[1:] {
			key := chunk[:strings.Index(chunk, "</Key>")]
			delete(f.objects, key)
			f.deleted = append(f.deleted, key)
			fmt.Fprintf(&sb, "<Deleted><Key>%s</Key></Deleted>", key)
		}
		sb.WriteString("</DeleteResult>")
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, sb.String())
	default:
		http.Error(w, "unexpected request", http.StatusNotImplemented)
	}
}

func newTestBucket(t *testing.T, cfg Config) (*Bucket, *fakeS3) {
	fake := &fakeS3{objects: map[string]string{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg.S3Endpoint = strings.TrimPrefix(server.URL, "http://")
	cfg.S3AccessKey = "test"
	cfg.S3SecretAccessKey = "test"
	cfg.S3BucketName = "dashboard"
	cfg.S3BucketLocation = "us-east-1"
	cfg.DisableSSL = true
	b, err := New(&cfg)
	require.NoError(t, err)
	return b, fake
}

func TestPublish(t *testing.T) {
	b, fake := newTestBucket(t, Config{BaseFolder: "growth"})

	require.NoError(t, b.Publish(context.Background(), []byte(`{"meta":{}}`)))
	require.Contains(t, fake.objects, "growth/data.json")
	assert.Contains(t, fake.objects["growth/data.json"], `{"meta":{}}`)
	assert.Len(t, fake.objects, 1)
}

func TestPublish_HistoryPruned(t *testing.T) {
	b, fake := newTestBucket(t, Config{BaseFolder: "growth", HistoryKeep: 2})
	fake.objects["growth/history/20261017T060000Z.json"] = "{}"
	fake.objects["growth/history/20261018T060000Z.json"] = "{}"

	nowFunc = func() time.Time { return time.Date(2026, time.October, 19, 6, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { nowFunc = time.Now })

	require.NoError(t, b.Publish(context.Background(), []byte(`{}`)))
	assert.Equal(t, []string{"growth/history/20261017T060000Z.json"}, fake.deleted)
	assert.Contains(t, fake.objects, "growth/history/20261018T060000Z.json")
	assert.Contains(t, fake.objects, "growth/history/20261019T060000Z.json")
	assert.Contains(t, fake.objects, "growth/data.json")
}

func TestPublish_Error(t *testing.T) {
	b, _ := newTestBucket(t, Config{})
	b.S3BucketName = "not a valid bucket"
	require.Error(t, b.Publish(context.Background(), []byte(`{}`)))
}

func TestKeys(t *testing.T) {
	b := &Bucket{Config: &Config{S3BucketName: "dash", S3Endpoint: "fra1.digitaloceanspaces.com"}}
	assert.Equal(t, "data.json", b.currentKey())
	assert.Equal(t, "history/20261019T060000Z.json", b.historyKey(time.Date(2026, time.October, 19, 6, 0, 0, 0, time.UTC)))
	assert.Equal(t, "https://dash.fra1.digitaloceanspaces.com/data.json", b.getCDNURL(b.currentKey()))

	b.BaseFolder = "public/"
	b.ObjectName = "growth.json"
	assert.Equal(t, "public/growth.json", b.currentKey())
	assert.Equal(t, "public/history/", b.historyPrefix())
}

func TestExpired(t *testing.T) {
	keys := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"a", "b"}, expired(keys, 2))
	assert.Nil(t, expired(keys, 4))
	assert.Nil(t, expired(keys, 0))
}

// TestPublish_Live runs against a real bucket when S3 credentials are present.
func TestPublish_Live(t *testing.T) {
	endpoint := os.Getenv("S3_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("S3_TEST_ENDPOINT not set, skipping integration test")
	}
	b, err := New(&Config{
		S3Endpoint:        endpoint,
		S3AccessKey:       os.Getenv("S3_TEST_ACCESS_KEY"),
		S3SecretAccessKey: os.Getenv("S3_TEST_SECRET_KEY"),
		S3BucketName:      os.Getenv("S3_TEST_BUCKET"),
		BaseFolder:        "growth-dashboard-test",
	})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), []byte(`{"test":true}`)))
}
