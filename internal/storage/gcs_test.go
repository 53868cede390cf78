package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
)

func TestDetectImageType(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		declared string
		want     string
		wantErr  bool
	}{
		{name: "png without declared type", body: pngHeader, want: "image/png"},
		{name: "png declared png", body: pngHeader, declared: "image/png", want: "image/png"},
		{name: "declared type with params", body: jpegHeader, declared: "Image/JPEG; q=1", want: "image/jpeg"},
		{name: "octet stream declared", body: jpegHeader, declared: "application/octet-stream", want: "image/jpeg"},
		{name: "mismatched declared type", body: pngHeader, declared: "image/jpeg", wantErr: true},
		{name: "plain text", body: []byte("hello world"), wantErr: true},
		{name: "html disguised as png", body: []byte("<html><body></body></html>"), declared: "image/png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectImageType(tt.body, tt.declared)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPut_RejectsBeforeUpload(t *testing.T) {
	// a nil client is never touched when the content is rejected
	store, err := NewGCSImageStore(nil, "menu-images")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "menu/pizza/1", "", []byte("not an image"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = store.Put(context.Background(), "  / ", "", pngHeader)
	assert.Error(t, err)
}

func TestNewGCSImageStore_RequiresBucket(t *testing.T) {
	_, err := NewGCSImageStore(nil, " ")
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/b/menu/x.png", PublicURL("b", "menu/x.png"))
}
