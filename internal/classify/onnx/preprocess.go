package onnx

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// Standard ImageNet preprocessing: resize the shorter side to 256, center
// crop 224x224, scale to [0,1], then normalize per channel.
const (
	resizeTo  = 256
	inputSize = 224
)

var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// preprocess loads a frame image and converts it to the model's input
// layout: float32 CHW, 1x3x224x224.
func preprocess(path string) ([]float32, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= bounds.Dy() {
		img = imaging.Resize(img, resizeTo, 0, imaging.Linear)
	} else {
		img = imaging.Resize(img, 0, resizeTo, imaging.Linear)
	}
	img = imaging.CropCenter(img, inputSize, inputSize)

	data := make([]float32, 3*inputSize*inputSize)
	plane := inputSize * inputSize
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			i := y*inputSize + x
			data[i] = (float32(r)/65535.0 - channelMean[0]) / channelStd[0]
			data[plane+i] = (float32(g)/65535.0 - channelMean[1]) / channelStd[1]
			data[2*plane+i] = (float32(b)/65535.0 - channelMean[2]) / channelStd[2]
		}
	}
	return data, nil
}
