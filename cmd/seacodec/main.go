// Command seacodec encodes and decodes WAV files with the SEA codec, and
// reports round-trip quality for a given encoder configuration.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	sea "github.com/chanderlud/sea-codec"
	"github.com/chanderlud/sea-codec/codec"
)

// cliSettings mirrors sea.EncoderSettings in a form pflag and yaml.v3 can
// both populate, since EncoderSettings itself carries no struct tags.
type cliSettings struct {
	ScaleFactorBits   int     `yaml:"scale_factor_bits"`
	ScaleFactorFrames int     `yaml:"scale_factor_frames"`
	ResidualBits      float64 `yaml:"residual_bits"`
	FramesPerChunk    int     `yaml:"frames_per_chunk"`
	VBR               bool    `yaml:"vbr"`
}

func (c cliSettings) toEncoderSettings(channels, sampleRate int) sea.EncoderSettings {
	return sea.EncoderSettings{
		ScaleFactorBits:   c.ScaleFactorBits,
		ScaleFactorFrames: c.ScaleFactorFrames,
		ResidualBits:      c.ResidualBits,
		FramesPerChunk:    c.FramesPerChunk,
		VBR:               c.VBR,
		SampleRate:        sampleRate,
		Channels:          channels,
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: seacodec <encode|decode|roundtrip> [flags] <file>")
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "encode":
		err = runEncode(args)
	case "decode":
		err = runDecode(args)
	case "roundtrip":
		err = runRoundtrip(args)
	default:
		err = errors.Errorf("unknown subcommand %q", cmd)
	}
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func parseFlags(name string, args []string) (cliSettings, string, *string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	settings := cliSettings{
		ScaleFactorBits:   4,
		ScaleFactorFrames: 20,
		ResidualBits:      3.0,
		FramesPerChunk:    5120,
	}

	fs.IntVar(&settings.ScaleFactorBits, "scale-factor-bits", settings.ScaleFactorBits, "scale factor index width, 1..6")
	fs.IntVar(&settings.ScaleFactorFrames, "scale-factor-frames", settings.ScaleFactorFrames, "frames per scale factor")
	fs.Float64Var(&settings.ResidualBits, "residual-bits", settings.ResidualBits, "residual width (fractional meaningful only with --vbr)")
	fs.IntVar(&settings.FramesPerChunk, "frames-per-chunk", settings.FramesPerChunk, "frames per chunk")
	fs.BoolVar(&settings.VBR, "vbr", settings.VBR, "use the VBR encoder instead of CBR")
	config := fs.String("config", "", "optional YAML file overriding the above flags")

	if err := fs.Parse(args); err != nil {
		return cliSettings{}, "", nil, errors.WithStack(err)
	}

	if *config != "" {
		data, err := os.ReadFile(*config)
		if err != nil {
			return cliSettings{}, "", nil, errors.WithStack(err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return cliSettings{}, "", nil, errors.WithStack(err)
		}
	}

	rest := fs.Args()
	if len(rest) < 1 {
		return cliSettings{}, "", nil, errors.Errorf("%s: missing file argument", name)
	}

	return settings, rest[0], config, nil
}

func runEncode(args []string) error {
	settings, wavPath, _, err := parseFlags("encode", args)
	if err != nil {
		return err
	}

	samples, channels, sampleRate, err := readWav(wavPath)
	if err != nil {
		return err
	}

	enc, err := sea.NewEncoder(settings.toEncoderSettings(channels, sampleRate))
	if err != nil {
		return errors.WithStack(err)
	}

	body, err := encodeAll(enc, samples, channels)
	if err != nil {
		return errors.WithStack(err)
	}

	outPath := wavPath + ".sea"
	if err := os.WriteFile(outPath, body, 0o644); err != nil {
		return errors.WithStack(err)
	}

	log.Infof("wrote %s (%d bytes, %d channels, %d Hz)", outPath, len(body), channels, sampleRate)
	return nil
}

// encodeAll drives an sea.Encoder over in-memory samples through channels,
// collecting every Data message it emits into one contiguous
// byte stream (file header followed by chunk bodies back to back).
func encodeAll(enc *sea.Encoder, samples []int16, channels int) ([]byte, error) {
	in := make(chan sea.Message)
	out := make(chan sea.Message, 1)

	errCh := make(chan error, 1)
	go func() { errCh <- enc.Run(in, out) }()

	var body []byte
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range out {
			if msg.Kind == sea.KindData {
				body = append(body, msg.Data...)
			}
		}
	}()

	stride := sea.FrameSize
	for offset := 0; offset < len(samples); offset += stride {
		end := offset + stride
		var frame [sea.FrameSize]int16
		if end > len(samples) {
			end = len(samples)
		}
		copy(frame[:], samples[offset:end])
		in <- sea.SamplesMessage(frame)
	}
	close(in)

	err := <-errCh
	close(out)
	<-done
	return body, err
}

func runDecode(args []string) error {
	_, seaPath, _, err := parseFlags("decode", args)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(seaPath)
	if err != nil {
		return errors.WithStack(err)
	}

	samples, header, err := decodeAll(data)
	if err != nil {
		return errors.WithStack(err)
	}

	outPath := seaPath + ".wav"
	if err := writeWav(outPath, samples, int(header.Channels), int(header.SampleRate)); err != nil {
		return errors.WithStack(err)
	}

	log.Infof("wrote %s (%d samples, %d channels, %d Hz)", outPath, len(samples), header.Channels, header.SampleRate)
	return nil
}

// decodeAll drives an sea.Decoder over a contiguous byte stream (file
// header followed by chunk bodies), splitting it back into Data messages
// using ChunkSize once the header has been read.
func decodeAll(data []byte) ([]int16, codec.FileHeader, error) {
	dec := sea.NewDecoder()
	var header codec.FileHeader

	in := make(chan sea.Message)
	out := make(chan sea.Message, 1)

	errCh := make(chan error, 1)
	go func() { errCh <- dec.Run(in, out) }()

	var samples []int16
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range out {
			if msg.Kind == sea.KindSamples {
				samples = append(samples, msg.Samples[:]...)
			}
		}
	}()

	if len(data) < codec.FileHeaderSize {
		close(in)
		<-errCh
		close(out)
		<-done
		return nil, codec.FileHeader{}, errors.New("input shorter than file header")
	}

	// Parsed directly from the raw bytes (rather than via dec.Header, whose
	// update races the unbuffered send below) purely to learn chunkSize for
	// splitting the remaining stream; dec still validates the header itself.
	rawHeader, err := codec.ParseFirstFileHeader(data[:codec.FileHeaderSize])
	if err != nil {
		close(in)
		<-errCh
		close(out)
		<-done
		return nil, codec.FileHeader{}, err
	}
	chunkSize := int(rawHeader.ChunkSize)

	in <- sea.DataMessage(append([]byte(nil), data[:codec.FileHeaderSize]...))
	offset := codec.FileHeaderSize

	for offset < len(data) {
		end := offset + chunkSize
		if chunkSize == 0 || end > len(data) {
			end = len(data)
		}
		in <- sea.DataMessage(append([]byte(nil), data[offset:end]...))
		offset = end
	}
	close(in)

	err = <-errCh
	close(out)
	<-done

	header, _ = dec.Header()
	return samples, header, err
}

func runRoundtrip(args []string) error {
	settings, wavPath, _, err := parseFlags("roundtrip", args)
	if err != nil {
		return err
	}

	original, channels, sampleRate, err := readWav(wavPath)
	if err != nil {
		return err
	}

	enc, err := sea.NewEncoder(settings.toEncoderSettings(channels, sampleRate))
	if err != nil {
		return errors.WithStack(err)
	}

	body, err := encodeAll(enc, original, channels)
	if err != nil {
		return errors.WithStack(err)
	}

	reconstructed, _, err := decodeAll(body)
	if err != nil {
		return errors.WithStack(err)
	}

	n := len(original)
	if len(reconstructed) < n {
		n = len(reconstructed)
	}

	var sumSq float64
	for i := 0; i < n; i++ {
		d := float64(original[i]) - float64(reconstructed[i])
		sumSq += d * d
	}
	mse := sumSq / float64(n)

	bitsPerSample := float64(len(body)*8) / float64(n)

	log.Infof("mse=%.2f bits_per_sample=%.3f compressed_bytes=%d original_samples=%d", mse, bitsPerSample, len(body), n)

	if settings.VBR {
		if dist := enc.VBRDistribution(); dist != nil {
			log.Infof("vbr residual-width distribution: %v", dist)
		}
	}

	return nil
}

func readWav(path string) (samples []int16, channels int, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, errors.WithStack(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, errors.Errorf("invalid WAV file %q", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, 0, 0, errors.WithStack(err)
	}

	channels = int(dec.NumChans)
	sampleRate = int(dec.SampleRate)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, 4096),
		SourceBitDepth: int(dec.BitDepth),
	}

	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return nil, 0, 0, errors.WithStack(err)
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			samples = append(samples, int16(s))
		}
	}

	return samples, channels, sampleRate, nil
}

func writeWav(path string, samples []int16, channels, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	defer enc.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
