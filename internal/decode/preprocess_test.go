package decode

import (
	"image"
	"image/color"
	"testing"
)

func TestGrayscaleAveragesChannels(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 30, G: 60, B: 90, A: 255})
	img.Set(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	gray := Grayscale(img)
	if got := gray.GrayAt(0, 0).Y; got != 60 {
		t.Fatalf("averaged pixel = %d, want 60", got)
	}
	if got := gray.GrayAt(1, 0).Y; got != 255 {
		t.Fatalf("white pixel = %d, want 255", got)
	}
}

func TestThresholdIsBinary(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(0, 0, 4, 1))
	gray.Pix = []uint8{0, 119, 120, 255}

	bin := Threshold(gray, DefaultThreshold)
	want := []uint8{0, 0, 255, 255}
	for i, p := range bin.Pix {
		if p != want[i] {
			t.Fatalf("pix[%d] = %d, want %d", i, p, want[i])
		}
	}
}

func TestInvertIsSelfInverse(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(0, 0, 3, 1))
	gray.Pix = []uint8{0, 100, 255}

	twice := Invert(Invert(gray))
	for i := range gray.Pix {
		if twice.Pix[i] != gray.Pix[i] {
			t.Fatalf("pix[%d] = %d, want %d", i, twice.Pix[i], gray.Pix[i])
		}
	}
}

func TestDownscalePreservesAspect(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	dst := Downscale(src, 40)

	b := dst.Bounds()
	if b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("bounds = %dx%d, want 40x20", b.Dx(), b.Dy())
	}
}

func TestDownscaleNoUpscale(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	if dst := Downscale(src, 480); dst != src {
		t.Fatal("frames narrower than the target width must pass through")
	}
}
