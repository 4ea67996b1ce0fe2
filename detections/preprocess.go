package detections

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]float32, InputWidth*InputHeight*3)
	},
}

// PrepareInput fills dst with the planar CHW float32 rendition of pic: all R
// samples, then all G, then all B, row-major within each channel, each byte
// divided by 255. Alpha is dropped. The /255 scale is the entire
// normalization policy.
//
// pic must already be at the fixed input resolution; anything else is
// rejected so a mis-sized off-screen buffer can never produce a silently
// wrong tensor.
func PrepareInput(pic image.Image, dst *ort.Tensor[float32]) error {
	return FillTensor(pic, dst.GetData())
}

// FillTensor is PrepareInput over a bare buffer of 3*InputWidth*InputHeight
// float32 elements.
func FillTensor(pic image.Image, data []float32) error {
	bounds := pic.Bounds()
	if bounds.Dx() != InputWidth || bounds.Dy() != InputHeight {
		return fmt.Errorf("input image is %dx%d, want %dx%d",
			bounds.Dx(), bounds.Dy(), InputWidth, InputHeight)
	}
	if len(data) != InputWidth*InputHeight*3 {
		return fmt.Errorf("input tensor holds %d elements, want %d",
			len(data), InputWidth*InputHeight*3)
	}

	buffer := bufferPool.Get().([]float32)
	defer bufferPool.Put(buffer)

	fillPlanar(pic, buffer)
	copy(data, buffer)
	return nil
}

// fillPlanar splits the rows across workers. Interleaved 4-byte-per-pixel
// images take the direct Pix path; everything else goes through At.
func fillPlanar(pic image.Image, buffer []float32) {
	numWorkers := runtime.NumCPU()
	if numWorkers > InputHeight {
		numWorkers = InputHeight
	}
	rowsPerWorker := InputHeight / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := startY + rowsPerWorker
		if w == numWorkers-1 {
			endY = InputHeight
		}

		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			switch img := pic.(type) {
			case *image.NRGBA:
				fillRowsInterleaved(img.Pix, img.Stride, startY, endY, buffer)
			case *image.RGBA:
				fillRowsInterleaved(img.Pix, img.Stride, startY, endY, buffer)
			default:
				fillRowsGeneric(pic, startY, endY, buffer)
			}
		}(startY, endY)
	}
	wg.Wait()
}

func fillRowsInterleaved(pix []uint8, stride, startY, endY int, buffer []float32) {
	const channelSize = InputWidth * InputHeight
	for y := startY; y < endY; y++ {
		row := pix[y*stride:]
		offset := y * InputWidth
		for x := 0; x < InputWidth; x++ {
			i := offset + x
			s := x * 4
			buffer[i] = float32(row[s]) / 255.0
			buffer[channelSize+i] = float32(row[s+1]) / 255.0
			buffer[channelSize*2+i] = float32(row[s+2]) / 255.0
		}
	}
}

func fillRowsGeneric(pic image.Image, startY, endY int, buffer []float32) {
	const channelSize = InputWidth * InputHeight
	min := pic.Bounds().Min
	for y := startY; y < endY; y++ {
		offset := y * InputWidth
		for x := 0; x < InputWidth; x++ {
			i := offset + x
			r, g, b, _ := pic.At(min.X+x, min.Y+y).RGBA()
			buffer[i] = float32(r>>8) / 255.0
			buffer[channelSize+i] = float32(g>>8) / 255.0
			buffer[channelSize*2+i] = float32(b>>8) / 255.0
		}
	}
}
