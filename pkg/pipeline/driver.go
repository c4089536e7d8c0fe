package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/wavdenoise/pkg/audio"
	"github.com/xaionaro-go/wavdenoise/pkg/audio/frame"
	"github.com/xaionaro-go/wavdenoise/pkg/audio/wav"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
	"github.com/xaionaro-go/wavdenoise/pkg/voicestats"
)

type NoiseSuppressionFactory func(ctx context.Context) (noisesuppression.NoiseSuppression, error)

type Config struct {
	TailPolicy     frame.TailPolicy
	VoiceThreshold float64
}

func DefaultConfig() Config {
	return Config{
		TailPolicy:     frame.TailPolicyDrop,
		VoiceThreshold: 0.5,
	}
}

// Driver runs WAV files through a noise suppression session. A Driver runs
// one file at a time; every run creates its own session.
type Driver struct {
	Config              Config
	NewNoiseSuppression NoiseSuppressionFactory

	state   State
	history []State
}

func NewDriver(
	newNoiseSuppression NoiseSuppressionFactory,
	cfg Config,
) *Driver {
	return &Driver{
		Config:              cfg,
		NewNoiseSuppression: newNoiseSuppression,
	}
}

func (d *Driver) State() State {
	return d.state
}

// History returns the states visited by the last run, in order.
func (d *Driver) History() []State {
	return append([]State{}, d.history...)
}

func (d *Driver) reset() {
	d.state = StateIdle
	d.history = []State{StateIdle}
}

func (d *Driver) transition(ctx context.Context, to State) {
	from := d.state
	if from.IsTerminal() || (to != StateFailed && to != from.next()) {
		panic(fmt.Errorf("invalid state transition: %v -> %v", from, to))
	}
	logger.Debugf(ctx, "state: %v -> %v", from, to)
	d.state = to
	d.history = append(d.history, to)
}

func (d *Driver) fail(ctx context.Context, err error) {
	if d.state.IsTerminal() {
		return
	}
	logger.Debugf(ctx, "failed in state %v: %v", d.state, err)
	d.transition(ctx, StateFailed)
}

// Denoise decodes wavData and runs every frame of it through a new
// noise suppression session configured with modelPath.
func (d *Driver) Denoise(
	ctx context.Context,
	wavData []byte,
	modelPath string,
) (_ *audio.Buffer, _ *Result, _err error) {
	d.reset()
	defer func() {
		if _err != nil {
			d.fail(ctx, _err)
		}
	}()
	return d.denoise(ctx, wavData, modelPath)
}

func (d *Driver) denoise(
	ctx context.Context,
	wavData []byte,
	modelPath string,
) (_ *audio.Buffer, _ *Result, _err error) {
	logger.Tracef(ctx, "denoise")
	defer func() { logger.Tracef(ctx, "/denoise: %v", _err) }()

	input, err := wav.DecodeBytes(wavData)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to decode the input: %w", err)
	}
	d.transition(ctx, StateDecoded)
	logger.Tracef(ctx, "decoded: format:%v rate:%d samples:%d", input.Format, input.SampleRate, input.NumSamples())

	frameSamples := frame.SizeInSamples(input.SampleRate)
	frameBytes := frameSamples * input.Format.BytesPerSample()
	seg, err := frame.Segment(len(input.Data), frameBytes, d.Config.TailPolicy)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: sample rate %d: %w", ErrSessionConfiguration, input.SampleRate, err)
	}
	logger.Tracef(ctx, "segmentation: %s", spew.Sdump(seg))

	ns, err := d.configure(ctx, input.SampleRate, modelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSessionConfiguration, err)
	}
	d.transition(ctx, StateConfigured)

	result := &Result{
		Format:       input.Format,
		SampleRate:   input.SampleRate,
		FrameSamples: frameSamples,
		FrameBytes:   frameBytes,
		DroppedBytes: seg.DroppedBytes(),
		PaddedBytes:  seg.PaddedBytes(),
		OutputBytes:  seg.OutputLength,
	}

	output, stats, err := d.stream(ctx, ns, input.Format, seg, input.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSessionProcessing, closeOnFailure(ns, err))
	}
	if err := ns.Close(); err != nil {
		return nil, nil, fmt.Errorf("%w: unable to close the session: %w", ErrSessionProcessing, err)
	}
	d.transition(ctx, StateEncoded)

	result.Frames = seg.Count
	result.VoiceStats = stats
	return &audio.Buffer{
		Format:     input.Format,
		SampleRate: input.SampleRate,
		Data:       output[:seg.OutputLength],
	}, result, nil
}

// configure creates the session and runs its configuration sequence. On
// failure the session is closed and not returned.
func (d *Driver) configure(
	ctx context.Context,
	sampleRate audio.SampleRate,
	modelPath string,
) (_ noisesuppression.NoiseSuppression, _err error) {
	logger.Tracef(ctx, "configure")
	defer func() { logger.Tracef(ctx, "/configure: %v", _err) }()

	ns, err := d.NewNoiseSuppression(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the session: %w", err)
	}
	if err := ns.LoadModel(ctx, modelPath); err != nil {
		return nil, closeOnFailure(ns, fmt.Errorf("unable to load the model '%s': %w", modelPath, err))
	}
	if err := ns.SetSampleRate(ctx, sampleRate); err != nil {
		return nil, closeOnFailure(ns, fmt.Errorf("unable to set the sample rate %d: %w", sampleRate, err))
	}
	return ns, nil
}

func (d *Driver) stream(
	ctx context.Context,
	ns noisesuppression.NoiseSuppression,
	format audio.SampleFormat,
	seg frame.Segmentation,
	data []byte,
) ([]byte, voicestats.Stats, error) {
	processFrame, err := noisesuppression.FrameFunc(ns, format)
	if err != nil {
		return nil, voicestats.Stats{}, err
	}
	d.transition(ctx, StateStreaming)

	input := seg.Prepare(data)
	output := make([]byte, seg.ProcessingLength())
	stats := voicestats.NewAccumulator(d.Config.VoiceThreshold, frame.Duration)
	var inSamples, outSamples []float64
	for idx := range seg.Count {
		begin, end := seg.Range(idx)
		confidence, err := processFrame(ctx, input[begin:end], output[begin:end])
		if err != nil {
			return nil, voicestats.Stats{}, fmt.Errorf("frame %d of %d: %w", idx, seg.Count, err)
		}
		stats.Add(confidence)

		inSamples = audio.ToFloat64s(format, inSamples, input[begin:end])
		outSamples = audio.ToFloat64s(format, outSamples, output[begin:end])
		stats.AddNoise(voicestats.RemovedDBFS(inSamples, outSamples))
	}
	return output, stats.Stats(), nil
}

func closeOnFailure(c io.Closer, err error) error {
	if closeErr := c.Close(); closeErr != nil {
		return multierror.Append(err, fmt.Errorf("unable to close the session: %w", closeErr))
	}
	return err
}

// Run denoises the WAV file inputPath into outputPath. A partially written
// output is left as is on failure.
func (d *Driver) Run(
	ctx context.Context,
	inputPath string,
	outputPath string,
	modelPath string,
) (_ *Result, _err error) {
	logger.Tracef(ctx, "Run(%s, %s, %s)", inputPath, outputPath, modelPath)
	defer func() { logger.Tracef(ctx, "/Run(%s, %s, %s): %v", inputPath, outputPath, modelPath, _err) }()

	d.reset()
	defer func() {
		if _err != nil {
			d.fail(ctx, _err)
		}
	}()

	wavData, err := readFile(inputPath)
	if err != nil {
		return nil, err
	}

	output, result, err := d.denoise(ctx, wavData, modelPath)
	if err != nil {
		return nil, err
	}

	encoded, err := wav.EncodeBytes(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	written, err := writeFile(outputPath, encoded)
	if err != nil {
		return nil, err
	}
	result.WrittenBytes = written
	d.transition(ctx, StateDone)
	return result, nil
}

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: '%s' does not exist: %w", ErrFileAccess, path, err)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: can't access '%s': %w", ErrFileAccess, path, err)
	default:
		return nil, fmt.Errorf("%w: error reading '%s': %w", ErrFileAccess, path, err)
	}
}

func writeFile(path string, b []byte) (_ uint64, _err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("%w: unable to create '%s': %w", ErrWrite, path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("%w: unable to close '%s': %w", ErrWrite, path, err)
		}
	}()

	wc := datacounter.NewWriterCounter(f)
	if _, err := wc.Write(b); err != nil {
		return wc.Count(), fmt.Errorf("%w: unable to write '%s': %w", ErrWrite, path, err)
	}
	return wc.Count(), nil
}
