package stt

import (
	"os"
	"path/filepath"
)

// WhisperModel describes a downloadable whisper.cpp model. Name doubles
// as the on-disk filename.
type WhisperModel struct {
	Name      string
	Label     string
	Size      string // human readable, for catalog listings
	SizeBytes int64  // for download progress
	URL       string
}

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// WhisperModels is the catalog of models voice capture can run
// on-device. Ordered smallest to largest; the base English model is a
// good default for dictated notes.
var WhisperModels = []WhisperModel{
	{Name: "ggml-tiny.en.bin", Label: "Tiny English", Size: "39 MB", SizeBytes: 39_000_000},
	{Name: "ggml-tiny.bin", Label: "Tiny Multilingual", Size: "39 MB", SizeBytes: 39_000_000},
	{Name: "ggml-base.en.bin", Label: "Base English", Size: "142 MB", SizeBytes: 142_000_000},
	{Name: "ggml-base.bin", Label: "Base Multilingual", Size: "142 MB", SizeBytes: 142_000_000},
	{Name: "ggml-small.en.bin", Label: "Small English", Size: "466 MB", SizeBytes: 466_000_000},
	{Name: "ggml-small.bin", Label: "Small Multilingual", Size: "466 MB", SizeBytes: 466_000_000},
	{Name: "ggml-medium.bin", Label: "Medium Multilingual", Size: "1.5 GB", SizeBytes: 1_500_000_000},
	{Name: "ggml-large-v3.bin", Label: "Large V3 Multilingual", Size: "3.0 GB", SizeBytes: 3_000_000_000},
}

func init() {
	for i := range WhisperModels {
		WhisperModels[i].URL = modelBaseURL + WhisperModels[i].Name
	}
}

// GetModel returns the catalog entry for name, or nil.
func GetModel(name string) *WhisperModel {
	for i := range WhisperModels {
		if WhisperModels[i].Name == name {
			return &WhisperModels[i]
		}
	}
	return nil
}

// IsModelDownloaded reports whether a non-empty model file exists under
// modelsDir.
func IsModelDownloaded(modelsDir, name string) bool {
	if modelsDir == "" || name == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(modelsDir, name))
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
