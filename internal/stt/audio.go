package stt

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/zeozeozeo/gomplerate"
)

// whisperSampleRate is the only input rate whisper.cpp accepts.
const whisperSampleRate = 16000

// opusMaxFrameSamples is the largest Opus frame, 120ms at 48kHz.
const opusMaxFrameSamples = 5760

// DecodeSamples loads an audio file as 16kHz mono float32, the input
// whisper.cpp expects. The recorder captures ogg/opus; for that format
// ffmpeg is preferred and a pure Go decode is the fallback, since the
// Go opus decoder chokes on some encoder outputs.
func DecodeSamples(filePath string) ([]float32, error) {
	haveFFmpeg := ffmpegAvailable()

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ogg", ".opus", ".oga":
		if haveFFmpeg {
			return decodeWithFFmpeg(filePath)
		}
		samples, err := decodeOggOpus(filePath)
		if err != nil {
			return nil, fmt.Errorf("stt: ogg decode failed (%v), install ffmpeg for reliable conversion", err)
		}
		return samples, nil
	default:
		if !haveFFmpeg {
			return nil, fmt.Errorf("stt: %s needs ffmpeg to decode", filepath.Base(filePath))
		}
		return decodeWithFFmpeg(filePath)
	}
}

func ffmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// decodeWithFFmpeg shells out to ffmpeg for a raw 16kHz mono s16le
// stream and converts it to float32.
func decodeWithFFmpeg(inputPath string) ([]float32, error) {
	tmp, err := os.CreateTemp("", "voicenote-pcm-*.raw")
	if err != nil {
		return nil, fmt.Errorf("stt: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.Command("ffmpeg",
		"-i", inputPath,
		"-ar", fmt.Sprintf("%d", whisperSampleRate),
		"-ac", "1",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-y",
		tmpPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		L_debug("stt: ffmpeg failed", "output", string(out))
		return nil, fmt.Errorf("stt: ffmpeg decode: %w", err)
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("stt: read decoded audio: %w", err)
	}

	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	return pcmToFloat32(pcm), nil
}

// decodeOggOpus decodes an ogg/opus file in pure Go, recovering from
// decoder panics on malformed packets.
func decodeOggOpus(filePath string) (samples []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			L_warn("stt: opus decoder panicked", "panic", r)
			samples, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("stt: open audio: %w", err)
	}
	defer file.Close()

	ogg, header, err := oggreader.NewWith(file)
	if err != nil {
		return nil, fmt.Errorf("stt: parse ogg container: %w", err)
	}

	sourceRate := int(header.SampleRate)
	channels := int(header.Channels)
	L_debug("stt: ogg stream", "sampleRate", sourceRate, "channels", channels)

	decoder := opus.NewDecoder()
	frame := make([]byte, opusMaxFrameSamples*channels*2)

	var pcm []int16
	for {
		segments, _, err := ogg.ParseNextPage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stt: parse ogg page: %w", err)
		}

		for _, packet := range segments {
			if len(packet) == 0 {
				continue
			}
			n, isStereo, err := decoder.Decode(packet, frame)
			if err != nil {
				L_debug("stt: skipping opus packet", "error", err, "len", len(packet))
				continue
			}
			decodedChannels := 1
			if isStereo {
				decodedChannels = 2
			}
			pcm = appendFramePCM(pcm, frame[:bytesForSamples(n, decodedChannels)])
		}
	}

	if len(pcm) == 0 {
		return nil, fmt.Errorf("stt: no audio decoded from %s", filePath)
	}

	if channels > 1 {
		pcm = downmixMono(pcm, channels)
	}
	if sourceRate != whisperSampleRate {
		pcm = resample(pcm, sourceRate, whisperSampleRate)
	}

	out := pcmToFloat32(pcm)
	L_debug("stt: decoded", "samples", len(out), "seconds", float64(len(out))/whisperSampleRate)
	return out, nil
}

// bytesForSamples bounds the decoded byte length to the frame buffer.
// The decoder reports sample counts that can overstate short frames.
func bytesForSamples(n, channels int) int {
	b := n * channels * 2
	if b < 0 || b > opusMaxFrameSamples*channels*2 {
		return opusMaxFrameSamples * channels * 2
	}
	return b
}

func appendFramePCM(dst []int16, frame []byte) []int16 {
	for i := 0; i+1 < len(frame); i += 2 {
		dst = append(dst, int16(binary.LittleEndian.Uint16(frame[i:i+2])))
	}
	return dst
}

// downmixMono averages interleaved channels into one.
func downmixMono(pcm []int16, channels int) []int16 {
	mono := make([]int16, len(pcm)/channels)
	for i := range mono {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			sum += int32(pcm[i*channels+ch])
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}

func resample(pcm []int16, fromRate, toRate int) []int16 {
	r, err := gomplerate.NewResampler(1, fromRate, toRate)
	if err != nil {
		L_warn("stt: resampler init failed, keeping source rate", "error", err)
		return pcm
	}
	return r.ResampleInt16(pcm)
}

func pcmToFloat32(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768.0
	}
	return out
}
