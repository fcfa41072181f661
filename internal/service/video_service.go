package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type VideoService interface {
	Ingest(ctx context.Context, userID int64, file *multipart.FileHeader) (*transfer.VideoUploadResult, error)
}

type videoService struct {
	ma     repository.MediaAssetRepository
	r2     ObjectStorage
	prober Prober
}

func NewVideoService(ma repository.MediaAssetRepository, r2 ObjectStorage, prober Prober) VideoService {
	return &videoService{
		ma:     ma,
		r2:     r2,
		prober: prober,
	}
}

// Ingest validates the upload, stores it, and records the asset. Metadata
// probing is best effort: a broken ffprobe never fails the upload.
func (s *videoService) Ingest(ctx context.Context, userID int64, file *multipart.FileHeader) (*transfer.VideoUploadResult, error) {
	if file == nil {
		err := errors.New("no file provided")
		slog.Info(err.Error())
		return nil, err
	}

	fileContent, err := file.Open()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, errors.New("unsupported file type")
	}
	if fileType.Extension != "mp4" && fileType.Extension != "mov" {
		return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := fmt.Sprintf("%s.%s", id, fileType.Extension)

	metadata, thumbnail := s.inspect(ctx, fileBytes, fileType.Extension)

	if err := s.r2.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	thumbnailKey := ""
	if len(thumbnail) > 0 {
		thumbnailKey = fmt.Sprintf("%s_thumb.jpg", id)
		if err := s.r2.Upload(ctx, thumbnailKey, thumbnail, "image/jpeg"); err != nil {
			slog.Info(err.Error())
			thumbnailKey = ""
		}
	}

	asset := models.MediaAsset{
		OwnerID:  userID,
		FileName: key,
		FileType: fileType.MIME.Value,
		FileSize: int64(len(fileBytes)),
		FileURL:  s.r2.PublicURL(key),
	}
	if thumbnailKey != "" {
		asset.ThumbnailURL = s.r2.PublicURL(thumbnailKey)
	}
	if metadata != nil {
		asset.Duration = metadata.Duration
		asset.Width = metadata.Width
		asset.Height = metadata.Height
		asset.Codec = metadata.Codec
		asset.FrameRate = metadata.FrameRate
		asset.Bitrate = metadata.Bitrate
	}

	if _, err := s.ma.Create(ctx, nil, &asset); err != nil {
		return nil, fmt.Errorf("error saving media asset: %w", err)
	}

	result := &transfer.VideoUploadResult{
		Path:         key,
		FileName:     file.Filename,
		Size:         asset.FileSize,
		MimeType:     asset.FileType,
		URL:          asset.FileURL,
		ThumbnailURL: asset.ThumbnailURL,
	}
	if metadata != nil {
		result.Duration = metadata.Duration
		result.Width = metadata.Width
		result.Height = metadata.Height
	}

	return result, nil
}

// inspect probes the upload through a temp file and grabs a thumbnail frame
// early in the video. Both steps degrade to nil on failure.
func (s *videoService) inspect(ctx context.Context, fileBytes []byte, ext string) (*transfer.VideoMetadata, []byte) {
	tmp, err := os.CreateTemp("", "upload-*."+ext)
	if err != nil {
		slog.Info(err.Error())
		return nil, nil
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(fileBytes); err != nil {
		slog.Info(err.Error())
		return nil, nil
	}

	metadata, err := s.prober.Probe(ctx, tmp.Name())
	if err != nil {
		return nil, nil
	}

	var thumbnail []byte
	if metadata.Duration > 0 {
		at := metadata.Duration * 0.1
		if at > 2 {
			at = 2
		}
		thumbnail, err = s.prober.Thumbnail(ctx, tmp.Name(), at)
		if err != nil {
			thumbnail = nil
		}
	}

	return metadata, thumbnail
}
