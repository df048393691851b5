package config

import (
	"strconv"
	"strings"
)

// ResolveBaseFilename expands the %fftpoints%, %integrtime% and %channel%
// placeholders spec.md §6 documents for BaseFilename1/BaseFilename2.
func ResolveBaseFilename(pattern string, s *Settings, channel int) string {
	r := strings.NewReplacer(
		"%fftpoints%", strconv.Itoa(s.FFTPoints),
		"%integrtime%", strconv.FormatFloat(s.FFTIntegSeconds, 'g', -1, 64),
		"%channel%", strconv.Itoa(channel),
	)
	return r.Replace(pattern)
}

// SwspecPath, XpolSwspecPath, PCalPath, RunLogPath and StartTimingPath are the
// fixed-suffix output files spec.md §6 names.
func SwspecPath(base string) string        { return base + "_swspec.bin" }
func XpolSwspecPath(base string) string    { return base + "_xpol_swspec.bin" }
func PCalPath(base string) string          { return base + "_pcal.bin" }
func RunLogPath(base string) string        { return base + "_runlog.txt" }
func StartTimingPath(base string) string   { return base + "_starttiming.txt" }
