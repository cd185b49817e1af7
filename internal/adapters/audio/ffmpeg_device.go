package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	"github.com/zatekoja/doctorconsole/pkg/config"
)

const stopGracePeriod = 5 * time.Second

// FFmpegDevice records the workstation microphone with an ffmpeg process
type FFmpegDevice struct {
	binary  string
	format  string
	input   string
	tempDir string

	mu   sync.Mutex
	held bool
}

// NewFFmpegDevice creates a microphone device from the audio configuration
func NewFFmpegDevice(cfg *config.AudioConfig) *FFmpegDevice {
	return &FFmpegDevice{
		binary:  cfg.FFmpegPath,
		format:  cfg.Format,
		input:   cfg.FFmpegInput,
		tempDir: cfg.TempDir,
	}
}

// CheckFFmpeg reports whether the ffmpeg binary can be found
func (d *FFmpegDevice) CheckFFmpeg() error {
	if _, err := exec.LookPath(d.binary); err != nil {
		return fmt.Errorf("%w: ffmpeg not found at %q", providers.ErrDeviceDenied, d.binary)
	}
	return nil
}

// Acquire starts recording the microphone into a temporary file
func (d *FFmpegDevice) Acquire(ctx context.Context) (providers.AudioHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.held {
		return nil, fmt.Errorf("%w: microphone already in use", providers.ErrDeviceDenied)
	}
	if err := d.CheckFFmpeg(); err != nil {
		return nil, err
	}

	outputPath := filepath.Join(d.tempDir, fmt.Sprintf("consultation-%s.wav", uuid.New().String()))
	cmd := exec.Command(d.binary,
		"-f", d.format,
		"-i", d.input,
		"-ac", "1",
		"-ar", "16000",
		"-y",
		outputPath,
	)

	// Log stderr for diagnostics
	logPath := outputPath + ".ffmpeg.log"
	logFile, err := os.Create(logPath)
	if err == nil {
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
			os.Remove(logPath)
		}
		return nil, fmt.Errorf("%w: %w", providers.ErrDeviceDenied, err)
	}

	h := &ffmpegHandle{
		device:     d,
		cmd:        cmd,
		outputPath: outputPath,
		logPath:    logPath,
		logFile:    logFile,
		startedAt:  time.Now(),
		done:       make(chan struct{}),
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	d.held = true
	log.Debug().Int("pid", cmd.Process.Pid).Str("output", outputPath).Msg("ffmpeg recording started")
	return h, nil
}

func (d *FFmpegDevice) release() {
	d.mu.Lock()
	d.held = false
	d.mu.Unlock()
}

type ffmpegHandle struct {
	device     *FFmpegDevice
	cmd        *exec.Cmd
	outputPath string
	logPath    string
	logFile    *os.File
	startedAt  time.Time

	done    chan struct{}
	waitErr error

	releaseOnce sync.Once
}

// Finalize stops ffmpeg with SIGINT so it writes a complete file, then reads it
func (h *ffmpegHandle) Finalize(ctx context.Context) (entities.AudioPayload, error) {
	select {
	case <-h.done:
	default:
		if err := h.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Warn().Err(err).Msg("Failed to interrupt ffmpeg")
		}
		select {
		case <-h.done:
		case <-time.After(stopGracePeriod):
			_ = h.cmd.Process.Kill()
			<-h.done
		case <-ctx.Done():
			_ = h.cmd.Process.Kill()
			<-h.done
			return entities.AudioPayload{}, ctx.Err()
		}
	}

	data, err := os.ReadFile(h.outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entities.AudioPayload{}, fmt.Errorf("%w: ffmpeg produced no recording (%v)", providers.ErrDeviceDenied, h.waitErr)
		}
		return entities.AudioPayload{}, fmt.Errorf("reading recording: %w", err)
	}

	// ffmpeg exits non-zero after an interrupt; the file is what matters.
	return entities.AudioPayload{
		Data:        data,
		ContentType: "audio/wav",
		CapturedAt:  h.startedAt,
	}, nil
}

// Release stops ffmpeg if it still runs and removes the temporary files
func (h *ffmpegHandle) Release() error {
	var err error
	h.releaseOnce.Do(func() {
		select {
		case <-h.done:
		default:
			if killErr := h.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
				err = fmt.Errorf("failed to stop ffmpeg: %w", killErr)
			}
			<-h.done
		}
		if h.logFile != nil {
			h.logFile.Close()
			os.Remove(h.logPath)
		}
		if rmErr := os.Remove(h.outputPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
		h.device.release()
	})
	return err
}
