package decode

import (
	"image"

	"golang.org/x/image/draw"
)

// DefaultThreshold is the fixed binarization midpoint applied before the
// software decode tier. Chosen below 128 to favor dim captures.
const DefaultThreshold = 120

// Downscale resizes img to the given width, preserving aspect ratio. Frames
// already at or below the target width are returned unchanged.
func Downscale(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if width <= 0 || bounds.Dx() <= width {
		return img
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// Grayscale converts img to 8-bit gray by per-pixel channel averaging.
func Grayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			avg := (r>>8 + g>>8 + b>>8) / 3
			gray.Pix[gray.PixOffset(x-bounds.Min.X, y-bounds.Min.Y)] = uint8(avg)
		}
	}
	return gray
}

// Threshold binarizes a grayscale image at level: pixels at or above level
// become white, the rest black. Maximizes contrast for the QR reader under
// uneven lighting.
func Threshold(gray *image.Gray, level uint8) *image.Gray {
	out := image.NewGray(gray.Bounds())
	for i, p := range gray.Pix {
		if p >= level {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// Invert flips the polarity of a grayscale image. Used for the inverted
// decode attempt on light-on-dark codes.
func Invert(gray *image.Gray) *image.Gray {
	out := image.NewGray(gray.Bounds())
	for i, p := range gray.Pix {
		out.Pix[i] = 255 - p
	}
	return out
}
