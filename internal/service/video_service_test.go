package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"testing"

	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal MP4: a valid ftyp box is all the sniffer needs.
var mp4Header = append([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'},
	make([]byte, 24)...)

var jpegHeader = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 16)...)

func makeFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func TestIngestStoresVideoAndMetadata(t *testing.T) {
	repo := newFakeMediaAssetRepo()
	r2 := newFakeStorage()
	prober := &fakeProber{
		metadata: &transfer.VideoMetadata{
			Duration: 30, Width: 1080, Height: 1920, Codec: "h264",
		},
		thumbnail: []byte{0xFF, 0xD8},
	}
	svc := NewVideoService(repo, r2, prober)

	result, err := svc.Ingest(context.Background(), 1, makeFileHeader(t, "clip.mp4", mp4Header))
	require.NoError(t, err)

	assert.Equal(t, "video/mp4", result.MimeType)
	assert.Equal(t, float64(30), result.Duration)
	assert.NotEmpty(t, result.ThumbnailURL)
	assert.Len(t, r2.uploads, 2, "video and thumbnail both uploaded")
}

func TestIngestDegradesWhenProbeFails(t *testing.T) {
	repo := newFakeMediaAssetRepo()
	r2 := newFakeStorage()
	prober := &fakeProber{probeErr: errors.New("ffprobe not installed")}
	svc := NewVideoService(repo, r2, prober)

	result, err := svc.Ingest(context.Background(), 1, makeFileHeader(t, "clip.mp4", mp4Header))
	require.NoError(t, err, "probe failure must not fail the upload")

	assert.Zero(t, result.Duration)
	assert.Empty(t, result.ThumbnailURL)
	assert.Len(t, r2.uploads, 1, "only the video is uploaded")
}

func TestIngestRejectsNonVideo(t *testing.T) {
	repo := newFakeMediaAssetRepo()
	r2 := newFakeStorage()
	svc := NewVideoService(repo, r2, &fakeProber{})

	_, err := svc.Ingest(context.Background(), 1, makeFileHeader(t, "photo.jpg", jpegHeader))
	assert.Error(t, err)
	assert.Empty(t, r2.uploads)
}

func TestIngestRejectsGarbage(t *testing.T) {
	repo := newFakeMediaAssetRepo()
	r2 := newFakeStorage()
	svc := NewVideoService(repo, r2, &fakeProber{})

	_, err := svc.Ingest(context.Background(), 1, makeFileHeader(t, "junk.bin", []byte{0x01, 0x02, 0x03}))
	assert.Error(t, err)
}
