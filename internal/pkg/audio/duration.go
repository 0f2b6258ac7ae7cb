package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// Estimator returns a best effort audio duration in minutes
type Estimator struct {
	ffprobe string
	timeout time.Duration
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewEstimator creates estimator, empty ffprobe path - size heuristic only
func NewEstimator(ffprobe string) *Estimator {
	return &Estimator{ffprobe: ffprobe, timeout: 20 * time.Second, run: runCmd}
}

// EstimateMinutes returns decoded duration if ffprobe succeeds, else 1 minute per MB
func (e *Estimator) EstimateMinutes(ctx context.Context, data []byte) float64 {
	if e.ffprobe != "" {
		d, err := e.probe(ctx, data)
		if err == nil {
			return d.Minutes()
		}
		goapp.Log.Warn().Err(err).Msg("can't probe audio, use size")
	}
	return SizeMinutes(len(data))
}

// SizeMinutes estimates duration from the payload size
func SizeMinutes(size int) float64 {
	return float64(size) / (1024 * 1024)
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (e *Estimator) probe(ctx context.Context, data []byte) (time.Duration, error) {
	f, err := os.CreateTemp("", "docbuddy-audio-*")
	if err != nil {
		return 0, fmt.Errorf("can't create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return 0, fmt.Errorf("can't write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("can't close temp file: %w", err)
	}
	ctx, cf := context.WithTimeout(ctx, e.timeout)
	defer cf()
	out, err := e.run(ctx, e.ffprobe, "-v", "quiet", "-print_format", "json", "-show_format", f.Name())
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (time.Duration, error) {
	var res probeResult
	if err := json.Unmarshal(out, &res); err != nil {
		return 0, fmt.Errorf("can't parse ffprobe output: %w", err)
	}
	sec, err := strconv.ParseFloat(res.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("can't parse duration '%s': %w", res.Format.Duration, err)
	}
	if sec <= 0 {
		return 0, fmt.Errorf("wrong duration %f", sec)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func runCmd(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
