//go:build rnnoise
// +build rnnoise

package rnnoise

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/wavdenoise/pkg/audio"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
)

/*
#cgo pkg-config: rnnoise
#cgo CFLAGS: -march=native
#include <stdio.h>
#include <stdlib.h>
#include <rnnoise.h>
*/
import "C"

type RNNoise struct {
	noisesuppression.SessionState
	ModelFile    *C.FILE
	Model        *C.RNNModel
	DenoiseState *C.DenoiseState
	Buffer       []float32
}

var _ noisesuppression.NoiseSuppression = (*RNNoise)(nil)

var frameSize int

func init() {
	frameSize = int(C.rnnoise_get_frame_size())
}

func New() (*RNNoise, error) {
	return &RNNoise{}, nil
}

// LoadModel loads the weights from the given file; an empty path selects
// the weights built into the library.
func (s *RNNoise) LoadModel(ctx context.Context, path string) (_err error) {
	logger.Tracef(ctx, "LoadModel(%s)", path)
	defer func() { logger.Tracef(ctx, "/LoadModel(%s): %v", path, _err) }()

	if err := s.ModelLoad(path); err != nil {
		return err
	}

	if path != "" {
		cPath := C.CString(path)
		defer C.free(unsafe.Pointer(cPath))
		cMode := C.CString("rb")
		defer C.free(unsafe.Pointer(cMode))

		f := C.fopen(cPath, cMode)
		if f == nil {
			s.ModelLoaded = false
			return fmt.Errorf("unable to open the model file '%s'", path)
		}
		model := C.rnnoise_model_from_file(f)
		if model == nil {
			C.fclose(f)
			s.ModelLoaded = false
			return fmt.Errorf("unable to parse the model file '%s'", path)
		}
		s.ModelFile = f
		s.Model = model
	}

	s.DenoiseState = C.rnnoise_create(s.Model)
	return nil
}

func (s *RNNoise) SetSampleRate(ctx context.Context, sampleRate audio.SampleRate) error {
	if sampleRate != SampleRate {
		return fmt.Errorf("%w: %d, RNNoise works only with %d", noisesuppression.ErrUnsupportedSampleRate, sampleRate, SampleRate)
	}
	return s.SampleRateSet(sampleRate)
}

func (s *RNNoise) Close() error {
	var mErr *multierror.Error
	if err := s.SessionState.Close(); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	if s.DenoiseState != nil {
		C.rnnoise_destroy(s.DenoiseState)
		s.DenoiseState = nil
	}
	if s.Model != nil {
		C.rnnoise_model_free(s.Model)
		s.Model = nil
	}
	if s.ModelFile != nil {
		if C.fclose(s.ModelFile) != 0 {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the model file '%s'", s.ModelPath))
		}
		s.ModelFile = nil
	}
	return mErr.ErrorOrNil()
}

func (s *RNNoise) SuppressNoisePCM16(ctx context.Context, input []byte, outputVoice []byte) (float64, error) {
	return s.suppressNoise(ctx, audio.SampleFormatPCM16, input, outputVoice)
}

func (s *RNNoise) SuppressNoiseFloat32(ctx context.Context, input []byte, outputVoice []byte) (float64, error) {
	return s.suppressNoise(ctx, audio.SampleFormatFloat32, input, outputVoice)
}

func (s *RNNoise) suppressNoise(
	ctx context.Context,
	format audio.SampleFormat,
	input []byte,
	outputVoice []byte,
) (_ret float64, _err error) {
	logger.Tracef(ctx, "SuppressNoise, format:%v, len:%d", format, len(input))
	defer func() { logger.Tracef(ctx, "/SuppressNoise, format:%v, len:%d: %v %v", format, len(input), _ret, _err) }()

	if err := s.CheckFrame(format, input, outputVoice); err != nil {
		return 0, err
	}

	samples := len(input) / int(format.BytesPerSample())
	if samples%frameSize != 0 {
		return 0, fmt.Errorf("the amount of samples is not a multiple of the RNNoise frame size: %d %% %d != 0", samples, frameSize)
	}
	if len(s.Buffer) < samples {
		s.Buffer = make([]float32, samples)
	}
	buf := s.Buffer[:samples]

	gain(format, buf, input)
	maxVADProb := noiseSuppress(s.DenoiseState, buf)
	ungain(format, outputVoice, buf)
	return maxVADProb, nil
}

// noiseSuppress processes buf in place, one RNNoise frame at a time.
func noiseSuppress(denoiseState *C.DenoiseState, buf []float32) float64 {
	var maxVADProb float64
	for len(buf) > 0 {
		chunk := buf[:frameSize]
		vadProb := C.rnnoise_process_frame(
			denoiseState,
			(*C.float)(unsafe.Pointer(unsafe.SliceData(chunk))),
			(*C.float)(unsafe.Pointer(unsafe.SliceData(chunk))),
		)
		if float64(vadProb) > maxVADProb {
			maxVADProb = float64(vadProb)
		}
		buf = buf[frameSize:]
	}
	return maxVADProb
}

// gain converts the samples to the int16 scale RNNoise operates on.
func gain(format audio.SampleFormat, dst []float32, src []byte) {
	switch format {
	case audio.SampleFormatPCM16:
		for idx := range dst {
			dst[idx] = float32(int16(binary.LittleEndian.Uint16(src[idx*2:])))
		}
	case audio.SampleFormatFloat32:
		for idx := range dst {
			dst[idx] = math.Float32frombits(binary.LittleEndian.Uint32(src[idx*4:])) * math.MaxInt16
		}
	}
}

func ungain(format audio.SampleFormat, dst []byte, src []float32) {
	switch format {
	case audio.SampleFormatPCM16:
		for idx, v := range src {
			v = float32(math.Round(float64(v)))
			if v > math.MaxInt16 {
				v = math.MaxInt16
			}
			if v < math.MinInt16 {
				v = math.MinInt16
			}
			binary.LittleEndian.PutUint16(dst[idx*2:], uint16(int16(v)))
		}
	case audio.SampleFormatFloat32:
		for idx, v := range src {
			binary.LittleEndian.PutUint32(dst[idx*4:], math.Float32bits(v/math.MaxInt16))
		}
	}
}
