package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// RunFFmpegCommand executes an FFmpeg command
func RunFFmpegCommand(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("ffmpeg error: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// FFmpegAvailable reports whether ffmpeg is on PATH
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// GetMediaDuration returns the duration of a media file in seconds
func GetMediaDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}

// ParseResolution splits "WIDTHxHEIGHT"
func ParseResolution(resolution string) (int, int, error) {
	parts := strings.Split(strings.ToLower(resolution), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q", resolution)
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q", resolution)
	}
	return w, h, nil
}

// stillScaleFilter fits a still frame into the target resolution without distorting it
func stillScaleFilter(resolution string, fps int) (string, error) {
	w, h, err := ParseResolution(resolution)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d,format=yuv420p",
		w, h, w, h, fps), nil
}

// RenderStillClip renders an image held for the length of a narration track.
// With an empty audioPath the clip is silent and lasts duration seconds.
func RenderStillClip(ctx context.Context, imagePath, audioPath, outputPath string, duration float64, resolution string, fps int) error {
	vf, err := stillScaleFilter(resolution, fps)
	if err != nil {
		return err
	}

	args := []string{"-loop", "1", "-i", imagePath}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	} else {
		args = append(args, "-f", "lavfi", "-t", fmt.Sprintf("%.2f", duration), "-i", "anullsrc=r=44100:cl=stereo")
	}

	args = append(args,
		"-vf", vf,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-preset", "medium",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "44100",
		"-ac", "2",
		"-shortest",
		"-y", outputPath,
	)

	return RunFFmpegCommand(ctx, args)
}

// ConcatVideos concatenates clips that share resolution, frame rate and audio layout
func ConcatVideos(ctx context.Context, inputFiles []string, outputPath string) error {
	if len(inputFiles) == 0 {
		return fmt.Errorf("no input files provided")
	}

	args := []string{}
	for _, file := range inputFiles {
		args = append(args, "-i", file)
	}

	var concatFilter strings.Builder
	for i := 0; i < len(inputFiles); i++ {
		fmt.Fprintf(&concatFilter, "[%d:v][%d:a]", i, i)
	}
	fmt.Fprintf(&concatFilter, "concat=n=%d:v=1:a=1[vout][aout]", len(inputFiles))

	args = append(args,
		"-filter_complex", concatFilter.String(),
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		"-y", outputPath,
	)

	return RunFFmpegCommand(ctx, args)
}
