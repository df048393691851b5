package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	gopsutilcpu "github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"gopkg.in/yaml.v3"
)

// ResolveNumCores auto-detects NumCPUCores via gopsutil when the INI left
// it at 0, the way the teacher repo uses github.com/shirou/gopsutil/v3 for
// host resource reporting. It must run before Derive, since the raw-buffer
// budget is divided across cores (original_source/src/swspectrometer.cpp:
// "sset.max_rawbuf_size = sset.max_rawbuf_size / sset.num_cores").
func ResolveNumCores(s *Settings) error {
	if s.NumCores == 0 {
		n, err := gopsutilcpu.Counts(true)
		if err != nil || n < 1 {
			n = 1
		}
		s.NumCores = n
	}
	return nil
}

// Finalize stamps a run identity and host snapshot for the run manifest.
// Call after Derive.
func Finalize(s *Settings) error {
	s.RunID = uuid.NewString()
	s.StartedAt = time.Now()

	s.HostCPUs = s.NumCores
	if n, err := gopsutilcpu.Counts(true); err == nil && n > 0 {
		s.HostCPUs = n
	}
	if avg, err := load.AvgWithContext(context.Background()); err == nil {
		s.HostLoad1 = avg.Load1
	} else {
		s.HostLoad1 = -1
	}
	return nil
}

// manifestDoc is the YAML shape written alongside the human-readable run
// log (SPEC_FULL.md "Configuration" / "Run manifest" supplement).
type manifestDoc struct {
	RunID              string  `yaml:"run_id"`
	StartedAt          string  `yaml:"started_at"`
	HostCPUs           int     `yaml:"host_cpus"`
	HostLoad1          float64 `yaml:"host_load1"`
	NumCores           int     `yaml:"num_cores"`
	FFTPoints          int     `yaml:"fft_points"`
	FFTSSBPoints       int     `yaml:"fft_ssb_points"`
	FFTOverlapFactor   int     `yaml:"fft_overlap_factor"`
	AveragedFFTs       int     `yaml:"averaged_ffts"`
	SpectraPerBuffer   int     `yaml:"spectra_per_buffer"`
	BuffersPerSpectrum int     `yaml:"buffers_per_spectrum"`
	RawBufSize         int     `yaml:"raw_buf_size_bytes"`
	SamplingFreq       float64 `yaml:"sampling_freq_hz"`
	SourceFormat       string  `yaml:"source_format"`
	SinkFormat         string  `yaml:"sink_format"`
	NumSources         int     `yaml:"num_sources"`
	NumXPols           int     `yaml:"num_xpols"`
	ExtractPCal        bool    `yaml:"extract_pcal"`
	PCalToneBins       int     `yaml:"pcal_tone_bins"`
}

// WriteManifest writes the <basefilename>_manifest.yaml supplement.
func WriteManifest(s *Settings, basefilename string) error {
	doc := manifestDoc{
		RunID:              s.RunID,
		StartedAt:          s.StartedAt.UTC().Format(time.RFC3339),
		HostCPUs:           s.HostCPUs,
		HostLoad1:          s.HostLoad1,
		NumCores:           s.NumCores,
		FFTPoints:          s.FFTPoints,
		FFTSSBPoints:       s.FFTSSBPoints,
		FFTOverlapFactor:   s.FFTOverlapFactor,
		AveragedFFTs:       s.AveragedFFTs,
		SpectraPerBuffer:   s.SpectraPerBuffer,
		BuffersPerSpectrum: s.BuffersPerSpectrum,
		RawBufSize:         s.RawBufSize,
		SamplingFreq:       s.SamplingFreq,
		SourceFormat:       s.SourceFormat.String(),
		SinkFormat:         sinkFormatString(s.SinkFormat),
		NumSources:         s.NumSources,
		NumXPols:           s.NumXPols,
		ExtractPCal:        s.ExtractPCal,
		PCalToneBins:       s.PCalToneBins,
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.WriteFile(basefilename+"_manifest.yaml", out, 0o644); err != nil {
		return fmt.Errorf("%w: writing manifest: %v", ErrIoError, err)
	}
	return nil
}

func sinkFormatString(f OutputFormat) string {
	if f == SinkASCII {
		return "ASCII"
	}
	return "Binary"
}
