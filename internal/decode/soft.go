package decode

import (
	"context"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// InversionMode controls which polarities the software tier attempts.
type InversionMode int

const (
	// InvertNever decodes the normal polarity only.
	InvertNever InversionMode = iota
	// InvertOnly decodes the inverted polarity only.
	InvertOnly
	// InvertBoth tries normal polarity first, then inverted.
	InvertBoth
)

// Soft is the pure-Go fallback tier: downscale, grayscale, fixed binary
// threshold, then a gozxing QR read per polarity. Slower than a native
// decoder but robust to uneven lighting.
type Soft struct {
	width     int
	threshold uint8
	mode      InversionMode
}

func NewSoft(processWidth int) *Soft {
	return &Soft{
		width:     processWidth,
		threshold: DefaultThreshold,
		mode:      InvertBoth,
	}
}

// NewSoftWithMode builds a software tier with an explicit inversion mode,
// for callers that know the polarity of their input.
func NewSoftWithMode(processWidth int, mode InversionMode) *Soft {
	d := NewSoft(processWidth)
	d.mode = mode
	return d
}

func (d *Soft) Name() string { return "gozxing" }

func (d *Soft) Attempt(ctx context.Context, img image.Image) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	bin := Threshold(Grayscale(Downscale(img, d.width)), d.threshold)

	var candidates []*image.Gray
	switch d.mode {
	case InvertNever:
		candidates = []*image.Gray{bin}
	case InvertOnly:
		candidates = []*image.Gray{Invert(bin)}
	default:
		candidates = []*image.Gray{bin, Invert(bin)}
	}

	for _, c := range candidates {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if payload, ok := readQR(c); ok {
			return payload, nil
		}
	}
	return "", ErrNoCode
}

func readQR(img image.Image) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
	if err != nil {
		return "", false
	}
	return result.GetText(), true
}
