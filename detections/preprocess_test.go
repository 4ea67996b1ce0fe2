package detections

import (
	"image"
	"image/color"
	"testing"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, InputWidth, InputHeight))
	for y := 0; y < InputHeight; y++ {
		for x := 0; x < InputWidth; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x % 256),
				G: uint8(y % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func TestFillTensorPlanarLayout(t *testing.T) {
	img := testImage()
	data := make([]float32, 3*InputWidth*InputHeight)
	if err := FillTensor(img, data); err != nil {
		t.Fatalf("FillTensor() failed: %v", err)
	}

	channelSize := InputWidth * InputHeight
	// Spot-check R, G, B planes at a few positions.
	for _, pos := range []struct{ x, y int }{
		{0, 0}, {1, 0}, {0, 1}, {255, 7}, {639, 639}, {320, 240},
	} {
		i := pos.y*InputWidth + pos.x
		wantR := float32(pos.x%256) / 255.0
		wantG := float32(pos.y%256) / 255.0
		wantB := float32((pos.x+pos.y)%256) / 255.0
		if data[i] != wantR {
			t.Errorf("R plane at (%d,%d) = %v, want %v", pos.x, pos.y, data[i], wantR)
		}
		if data[channelSize+i] != wantG {
			t.Errorf("G plane at (%d,%d) = %v, want %v", pos.x, pos.y, data[channelSize+i], wantG)
		}
		if data[2*channelSize+i] != wantB {
			t.Errorf("B plane at (%d,%d) = %v, want %v", pos.x, pos.y, data[2*channelSize+i], wantB)
		}
	}
}

func TestFillTensorValuesInUnitInterval(t *testing.T) {
	data := make([]float32, 3*InputWidth*InputHeight)
	if err := FillTensor(testImage(), data); err != nil {
		t.Fatalf("FillTensor() failed: %v", err)
	}
	for i, v := range data {
		if v < 0 || v > 1 {
			t.Fatalf("element %d = %v, outside [0,1]", i, v)
		}
	}
}

func TestFillTensorMatchesGenericPath(t *testing.T) {
	// The interleaved fast path and the At() fallback must agree.
	img := testImage()
	fast := make([]float32, 3*InputWidth*InputHeight)
	generic := make([]float32, 3*InputWidth*InputHeight)

	if err := FillTensor(img, fast); err != nil {
		t.Fatalf("FillTensor() failed: %v", err)
	}
	fillRowsGeneric(img, 0, InputHeight, generic)

	for i := range fast {
		if fast[i] != generic[i] {
			t.Fatalf("element %d differs: fast=%v generic=%v", i, fast[i], generic[i])
		}
	}
}

func TestFillTensorDropsAlpha(t *testing.T) {
	// A transparent pixel still contributes its raw color samples.
	img := image.NewNRGBA(image.Rect(0, 0, InputWidth, InputHeight))
	img.SetNRGBA(3, 5, color.NRGBA{R: 200, G: 100, B: 50, A: 0})

	data := make([]float32, 3*InputWidth*InputHeight)
	if err := FillTensor(img, data); err != nil {
		t.Fatalf("FillTensor() failed: %v", err)
	}

	channelSize := InputWidth * InputHeight
	i := 5*InputWidth + 3
	if data[i] != 200.0/255.0 || data[channelSize+i] != 100.0/255.0 || data[2*channelSize+i] != 50.0/255.0 {
		t.Errorf("transparent pixel mapped to (%v, %v, %v), want raw samples /255",
			data[i], data[channelSize+i], data[2*channelSize+i])
	}
}

func TestFillTensorRejectsWrongResolution(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 320, 240))
	data := make([]float32, 3*InputWidth*InputHeight)
	if err := FillTensor(img, data); err == nil {
		t.Error("FillTensor accepted a 320x240 image")
	}
}

func TestFillTensorRejectsWrongBufferLength(t *testing.T) {
	data := make([]float32, 3*InputWidth*InputHeight-1)
	if err := FillTensor(testImage(), data); err == nil {
		t.Error("FillTensor accepted a short buffer")
	}
}
