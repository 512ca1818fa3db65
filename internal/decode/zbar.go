package decode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// zbarimg exits with 4 when the image held no readable symbol.
const zbarExitNoSymbol = 4

// ZBar is the native tier: it shells out to the zbarimg binary when it is
// installed on the host. Treated as best-effort; any failure here falls
// through to the software tier.
type ZBar struct {
	path string
}

// NewZBar locates zbarimg on PATH. A missing binary is an error so callers
// can leave the tier out of the chain entirely.
func NewZBar() (*ZBar, error) {
	path, err := exec.LookPath("zbarimg")
	if err != nil {
		return nil, fmt.Errorf("zbarimg is not installed or not on PATH")
	}
	return &ZBar{path: path}, nil
}

func (z *ZBar) Name() string { return "zbarimg" }

func (z *ZBar) Attempt(ctx context.Context, img image.Image) (string, error) {
	tmp, err := os.CreateTemp("", "qrsentry-frame-*.png")
	if err != nil {
		return "", fmt.Errorf("temp frame: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encoding frame: %w", err)
	}
	tmp.Close()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, z.path, "--raw", "-q", "-Sdisable", "-Sqrcode.enable", filepath.Clean(tmp.Name()))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == zbarExitNoSymbol {
			return "", ErrNoCode
		}
		return "", fmt.Errorf("zbarimg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	payload := strings.TrimSpace(stdout.String())
	if payload == "" {
		return "", ErrNoCode
	}
	// Multiple symbols in frame: take the first, matching the session's
	// single-payload contract.
	if idx := strings.IndexByte(payload, '\n'); idx > 0 {
		payload = strings.TrimSpace(payload[:idx])
	}
	return payload, nil
}
