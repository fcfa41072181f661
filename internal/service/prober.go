package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

// Prober extracts media metadata and thumbnails from a local video file.
type Prober interface {
	Probe(ctx context.Context, path string) (*transfer.VideoMetadata, error)
	Thumbnail(ctx context.Context, path string, atSeconds float64) ([]byte, error)
}

type ffmpegProber struct {
	ffprobePath string
	ffmpegPath  string
}

func NewFFmpegProber(cfg config.Config) Prober {
	return &ffmpegProber{
		ffprobePath: cfg.FFprobePath,
		ffmpegPath:  cfg.FFmpegPath,
	}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

func (p *ffmpegProber) Probe(ctx context.Context, path string) (*transfer.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)

	out, err := cmd.Output()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	md := &transfer.VideoMetadata{}
	md.Duration, _ = strconv.ParseFloat(probed.Format.Duration, 64)
	md.Bitrate, _ = strconv.ParseInt(probed.Format.BitRate, 10, 64)

	for _, stream := range probed.Streams {
		if stream.CodecType != "video" {
			continue
		}
		md.Width = stream.Width
		md.Height = stream.Height
		md.Codec = stream.CodecName
		md.FrameRate = parseFrameRate(stream.AvgFrameRate)
		if md.FrameRate == 0 {
			md.FrameRate = parseFrameRate(stream.RFrameRate)
		}
		break
	}

	return md, nil
}

func (p *ffmpegProber) Thumbnail(ctx context.Context, path string, atSeconds float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-ss", fmt.Sprintf("%.2f", atSeconds),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2",
		"-vcodec", "mjpeg",
		"pipe:1")

	out, err := cmd.Output()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return out, nil
}

// parseFrameRate handles ffprobe's rational notation, e.g. "30000/1001".
func parseFrameRate(raw string) float64 {
	if raw == "" || raw == "0/0" {
		return 0
	}
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) == 1 {
		rate, _ := strconv.ParseFloat(parts[0], 64)
		return rate
	}

	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}
