package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/wavdenoise/pkg/config"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
	_ "github.com/xaionaro-go/wavdenoise/pkg/noisesuppression/implementations/rnnoise"
	_ "github.com/xaionaro-go/wavdenoise/pkg/noisesuppression/implementations/spectral"
	_ "github.com/xaionaro-go/wavdenoise/pkg/noisesuppression/implementations/vadgate"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression/registry"
	"github.com/xaionaro-go/wavdenoise/pkg/pipeline"
	"github.com/xaionaro-go/wavdenoise/pkg/voicestats"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the command line args and returns the exit code.
func run(args []string, stdout io.Writer) int {
	cfg, err := config.NewConfigFromEnv(context.Background())
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}
	loggerLevel, err := cfg.LoggerLevel()
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	flags := pflag.NewFlagSet("wavdenoise", pflag.ContinueOnError)
	flags.SetOutput(stdout)
	flags.Var(&loggerLevel, "log-level", "Log level")
	inputPath := flags.StringP("input-wav", "i", "", "Path to the input WAV file")
	outputPath := flags.StringP("output-wav", "o", "", "Path to the processed WAV file")
	modelPath := flags.StringP("model", "m", "", "Path to the model file")
	engine := flags.String("engine", cfg.Engine, fmt.Sprintf("Noise suppression engine: %s or one of %s", registry.EngineAuto, strings.Join(registry.Names(), ", ")))
	flags.Var(&cfg.TailPolicy, "tail-policy", "What to do with the trailing samples that do not fill a whole frame: drop or pad")
	flags.Float64Var(&cfg.VoiceThreshold, "voice-threshold", cfg.VoiceThreshold, "Voice confidence above which a frame is counted as talk time")
	printStats := flags.Bool("stats", false, "Print talk time and noise statistics")
	netPprofAddr := flags.String("net-pprof-listen-addr", cfg.NetPprofListenAddr, "an address to listen for incoming net/pprof connections")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	var missing []string
	for _, required := range []struct {
		Flag  string
		Value string
	}{
		{"--input-wav", *inputPath},
		{"--output-wav", *outputPath},
		{"--model", *modelPath},
	} {
		if required.Value == "" {
			missing = append(missing, required.Flag)
		}
	}
	if len(missing) != 0 {
		fmt.Fprintf(stdout, "error: required option(s) not specified: %s\n", strings.Join(missing, ", "))
		flags.Usage()
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	fmt.Fprintln(stdout, "Input WAV:", *inputPath)
	fmt.Fprintln(stdout, "Output WAV:", *outputPath)
	fmt.Fprintln(stdout, "Model:", *modelPath)

	driver := pipeline.NewDriver(
		func(ctx context.Context) (noisesuppression.NoiseSuppression, error) {
			return registry.New(ctx, *engine)
		},
		cfg.Pipeline(),
	)
	result, err := driver.Run(ctx, *inputPath, *outputPath, *modelPath)
	if err != nil {
		belt.Flush(ctx)
		fmt.Fprintln(stdout, err)
		return 1
	}
	logger.Debugf(ctx, "result: %#+v", result)

	if result.DroppedBytes != 0 {
		logger.Infof(ctx, "dropped the trailing %d bytes that do not fill a whole frame", result.DroppedBytes)
	}
	if *printStats {
		printResult(stdout, result)
	}
	return 0
}

func printResult(w io.Writer, result *pipeline.Result) {
	stats := result.VoiceStats
	fmt.Fprintf(w, "Format: %v, %d Hz\n", result.Format, result.SampleRate)
	fmt.Fprintf(w, "Frames: %d x %d samples\n", result.Frames, result.FrameSamples)
	fmt.Fprintf(w, "Duration: %v\n", stats.TotalDuration())
	for _, level := range voicestats.NoiseLevels() {
		fmt.Fprintf(w, "Noise level %s: %v\n", level, stats.NoiseTime(level))
	}
	fmt.Fprintf(w, "Talk time: %v (%.1f%%)\n", stats.TalkTime(), stats.TalkRatio()*100)
	if stats.FirstVoice >= 0 {
		fmt.Fprintf(w, "First voice at: %v\n", stats.FirstVoiceAt())
	}
	fmt.Fprintf(w, "Max voice confidence: %.3f\n", stats.MaxConfidence)
	fmt.Fprintf(w, "Written: %d bytes\n", result.WrittenBytes)
}
