package s3

import (
	"strings"
	"testing"
)

func TestProductPhotoKeyUnique(t *testing.T) {
	a := ProductPhotoKey("u1", "image/png")
	b := ProductPhotoKey("u1", "image/png")
	if a == b {
		t.Fatalf("expected unique keys, got %q twice", a)
	}
	if !strings.HasPrefix(a, "products/u1/") || !strings.HasSuffix(a, ".png") {
		t.Errorf("unexpected key %q", a)
	}
}

func TestProductPhotoKeyDefaultExtension(t *testing.T) {
	if k := ProductPhotoKey("u1", "application/octet-stream"); !strings.HasSuffix(k, ".jpg") {
		t.Errorf("unexpected key %q", k)
	}
}

func TestAvatarKeyStable(t *testing.T) {
	if AvatarKey("u2") != "avatars/u2/profile.jpg" {
		t.Errorf("unexpected avatar key %q", AvatarKey("u2"))
	}
}
