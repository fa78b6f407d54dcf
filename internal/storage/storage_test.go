package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestThumbnailKeys(t *testing.T) {
	key := NewThumbnailKey("doc-1", ".png")
	if !strings.HasPrefix(key, "thumbnails/document/doc-1/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	if !IsThumbnailKey("doc-1", key) {
		t.Fatalf("expected %q to belong to doc-1", key)
	}

	for _, bad := range []string{
		"thumbnails/document/doc-2/x.png",
		"thumbnails/document/doc-1/../doc-2/x.png",
		"thumbnails/document/doc-1//x.png",
		"user-assets/1/x.png",
	} {
		if IsThumbnailKey("doc-1", bad) {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestIsNoSuchKey(t *testing.T) {
	wrapped := fmt.Errorf("remove: %w", minio.ErrorResponse{Code: "NoSuchKey"})
	if !IsNoSuchKey(wrapped) {
		t.Fatal("expected NoSuchKey to match")
	}
	if IsNoSuchKey(errors.New("connection refused")) {
		t.Fatal("expected unrelated error not to match")
	}
	if IsNoSuchKey(nil) {
		t.Fatal("nil is not NoSuchKey")
	}
}

func TestNewClamdScannerDisabledWithoutAddr(t *testing.T) {
	if NewClamdScanner("") != nil {
		t.Fatal("expected nil scanner")
	}
}

func TestIsNoSuchKey_StatusOnly(t *testing.T) {
	if !IsNoSuchKey(minio.ErrorResponse{StatusCode: 404}) {
		t.Fatal("bare 404 should count as missing")
	}
	if IsNoSuchKey(minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}) {
		t.Fatal("access denied is not missing")
	}
}

func TestParseBucketLookup(t *testing.T) {
	for raw, want := range map[string]minio.BucketLookupType{
		"":     minio.BucketLookupAuto,
		"DNS":  minio.BucketLookupDNS,
		"path": minio.BucketLookupPath,
	} {
		got, err := parseBucketLookup(raw)
		if err != nil || got != want {
			t.Fatalf("%q: got %v, %v", raw, got, err)
		}
	}
	if _, err := parseBucketLookup("virtual"); err == nil {
		t.Fatal("expected error for unknown lookup")
	}
}
