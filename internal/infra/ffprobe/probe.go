package ffprobe

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"trustmark/internal/infra/toolrunner"
	"trustmark/internal/usecase"
)

// Probe extracts container metadata via ffprobe. Strictly best effort: any
// failure (missing binary, timeout, unparsable output) yields nil and the
// caller proceeds without metadata.
type Probe struct {
	Bin     string
	Timeout time.Duration
	Runner  *toolrunner.Runner
	Logger  *slog.Logger
}

func NewProbe(bin string, timeout time.Duration, runner *toolrunner.Runner, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = toolrunner.New(logger)
	}
	return &Probe{Bin: bin, Timeout: timeout, Runner: runner, Logger: logger}
}

func (p *Probe) Extract(ctx context.Context, path string) *usecase.MediaMetadata {
	out, err := p.Runner.Run(ctx, p.Timeout,
		p.Bin, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
	if err != nil {
		p.Logger.Warn("ffprobe failed, continuing without metadata", "path", path, "error", err)
		return nil
	}
	if !gjson.Valid(out) {
		p.Logger.Warn("ffprobe output is not valid JSON", "path", path)
		return nil
	}

	meta := &usecase.MediaMetadata{}
	meta.DurationSec = gjson.Get(out, "format.duration").Float()
	meta.BitRate = gjson.Get(out, "format.bit_rate").Int()

	video := gjson.Get(out, `streams.#(codec_type=="video")`)
	if video.Exists() {
		meta.Width = int(video.Get("width").Int())
		meta.Height = int(video.Get("height").Int())
		meta.Codec = video.Get("codec_name").String()
		meta.FrameRate = parseFrameRate(video.Get("r_frame_rate").String())
	}

	if meta.DurationSec == 0 && meta.Width == 0 && meta.Height == 0 {
		return nil
	}
	return meta
}

// parseFrameRate handles ffprobe's rational notation, e.g. "30000/1001".
func parseFrameRate(raw string) float64 {
	if raw == "" {
		return 0
	}
	parts := strings.SplitN(raw, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}
