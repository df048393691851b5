package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// INISource is the named interface to the out-of-scope INI parser
// (spec.md §1: "the INI parser ... treated as external collaborators").
// The implementation below is deliberately minimal: no nested sections,
// no interpolation, no multi-line values. Parsing the file format is not
// part of the hard problem this repository solves; everything this
// package does with the parsed keys (defaulting, validation, derivation)
// is.
type INISource interface {
	// Section returns the key/value pairs of the named section,
	// lower-cased keys, as a map (file order is not kept). Missing
	// section -> empty map, nil.
	Section(name string) (map[string]string, error)
}

type fileINI struct {
	sections map[string]map[string]string
}

// OpenINI reads path and returns an INISource over its sections.
func OpenINI(path string) (INISource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	defer f.Close()
	return parseINI(f)
}

func parseINI(r io.Reader) (INISource, error) {
	sections := map[string]map[string]string{}
	cur := ""
	sections[cur] = map[string]string{}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			cur = normalizeKey(line[1 : len(line)-1])
			if _, ok := sections[cur]; !ok {
				sections[cur] = map[string]string{}
			}
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, fmt.Errorf("%w: line %d: no '=' in %q", ErrConfigInvalid, lineNo, line)
		}
		key := normalizeKey(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		sections[cur][key] = val
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return &fileINI{sections: sections}, nil
}

func (f *fileINI) Section(name string) (map[string]string, error) {
	s, ok := f.sections[normalizeKey(name)]
	if !ok {
		return map[string]string{}, nil
	}
	return s, nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// kv is a thin helper over a parsed section that applies spec.md §6's
// defaults and converts string values, accumulating the first error seen.
type kv struct {
	m   map[string]string
	err error
}

func (k *kv) str(key, def string) string {
	if v, ok := k.m[normalizeKey(key)]; ok && v != "" {
		return v
	}
	return def
}

func (k *kv) intv(key string, def int) int {
	v, ok := k.m[normalizeKey(key)]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && k.err == nil {
		k.err = fmt.Errorf("%w: %s=%q: %v", ErrConfigInvalid, key, v, err)
	}
	return n
}

func (k *kv) floatv(key string, def float64) float64 {
	v, ok := k.m[normalizeKey(key)]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil && k.err == nil {
		k.err = fmt.Errorf("%w: %s=%q: %v", ErrConfigInvalid, key, v, err)
	}
	return n
}

func (k *kv) boolv(key string, def bool) bool {
	v, ok := k.m[normalizeKey(key)]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseBool(v)
	if err != nil && k.err == nil {
		k.err = fmt.Errorf("%w: %s=%q: %v", ErrConfigInvalid, key, v, err)
	}
	return n
}

// Load reads the [Spectrometer] section of src and fills a Settings with
// the run-configuration fields (no derivation yet: call Derive after).
// numInputFiles is 1 or 2, the count of positional input files the
// out-of-scope CLI layer parsed off the command line (spec.md §6).
func Load(src INISource, numInputFiles int) (*Settings, error) {
	section, err := src.Section("Spectrometer")
	if err != nil {
		return nil, err
	}
	k := &kv{m: section}

	s := &Settings{}
	s.NumCores = k.intv("NumCPUCores", 0)
	s.MaxSourceBufferMB = k.floatv("MaxSourceBufferMB", 16)
	s.FFTPoints = k.intv("FFTpoints", 1024)
	s.FFTIntegSeconds = k.floatv("FFTIntegrationTimeSec", 1.0)
	s.FFTOverlapFactor = k.intv("FFToverlapFactor", 1)

	wf, werr := parseWindowType(k.str("WindowType", "Cosine2"))
	if werr != nil && k.err == nil {
		k.err = werr
	}
	s.WindowType = wf

	s.BandwidthHz = k.floatv("BandwidthHz", 8_000_000)
	s.SamplingFreq = 2 * s.BandwidthHz

	s.PCalOffsetHz = k.floatv("PCalOffsetHz", 0)
	s.PCalHarmonicsHz = k.floatv("PCalHarmonicsHz", 1_000_000)
	s.ExtractPCal = k.boolv("ExtractPCal", false)
	s.DoCrossPolarization = k.boolv("DoCrossPolarization", false)
	s.DoCostasLoop = k.boolv("DoCostasLoop", false)
	s.PlotProgress = k.boolv("PlotProgress", false)

	s.BitsPerSample = k.intv("BitsPerSample", 2)
	s.SourceChannels = k.intv("SourceChannels", 1)
	s.ChannelsLSBFirst = !k.boolv("ChannelOrderIncreasing", true)
	s.UseFile1Channel = k.intv("UseFile1Channel", 1)
	s.UseFile2Channel = k.intv("UseFile2Channel", 1)
	s.SourceSkipSeconds = k.intv("SourceSkipSeconds", 0)
	s.DataReplacementFanout = k.intv("DataReplacementFanout", 1)

	sf, serr := parseInputFormat(k.str("SourceFormat", "RawSigned"))
	if serr != nil && k.err == nil {
		k.err = serr
	}
	s.SourceFormat = sf

	of, oerr := parseOutputFormat(k.str("SinkFormat", "Binary"))
	if oerr != nil && k.err == nil {
		k.err = oerr
	}
	s.SinkFormat = of

	s.BaseFilename1 = k.str("BaseFilename1", "out1")
	s.BaseFilename2 = k.str("BaseFilename2", "out2")

	s.PrometheusAddr = k.str("PrometheusAddr", "")
	s.MonitorAddr = k.str("MonitorAddr", "")
	s.MQTTBrokerURL = k.str("MQTTBrokerURL", "")
	s.MQTTTopic = k.str("MQTTTopic", "swspectrometer/status")
	s.CompressSink = k.boolv("CompressSink", false)

	if numInputFiles < 1 || numInputFiles > 2 {
		return nil, fmt.Errorf("%w: expected 1 or 2 input files, got %d", ErrConfigInvalid, numInputFiles)
	}
	s.NumSources = numInputFiles
	if s.NumSources == 2 && s.DoCrossPolarization {
		s.NumXPols = 1
	}

	if k.err != nil {
		return nil, k.err
	}
	if err := validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func validate(s *Settings) error {
	if s.FFTPoints <= 0 || s.FFTPoints%2 != 0 {
		return fmt.Errorf("%w: FFTpoints must be a positive even number, got %d", ErrConfigInvalid, s.FFTPoints)
	}
	if s.FFTOverlapFactor < 1 {
		return fmt.Errorf("%w: FFToverlapFactor must be >= 1, got %d", ErrConfigInvalid, s.FFTOverlapFactor)
	}
	if s.FFTPoints%s.FFTOverlapFactor != 0 {
		return fmt.Errorf("%w: FFTpoints (%d) must be divisible by FFToverlapFactor (%d)", ErrConfigInvalid, s.FFTPoints, s.FFTOverlapFactor)
	}
	if s.BitsPerSample != 1 && s.BitsPerSample != 2 && s.BitsPerSample != 8 && s.BitsPerSample != 16 {
		return fmt.Errorf("%w: BitsPerSample must be one of {1,2,8,16}, got %d", ErrConfigInvalid, s.BitsPerSample)
	}
	if s.SourceChannels < 1 {
		return fmt.Errorf("%w: SourceChannels must be >= 1, got %d", ErrConfigInvalid, s.SourceChannels)
	}
	if s.SamplingFreq <= 0 {
		return fmt.Errorf("%w: BandwidthHz must be > 0", ErrConfigInvalid)
	}
	if s.SourceFormat == FormatMaxim {
		return fmt.Errorf("%w: Maxim format has no unpacker", ErrFormatUnsupported)
	}
	return nil
}
