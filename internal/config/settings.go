package config

import "time"

// Settings is the immutable-after-startup run configuration plus every
// derived size/scheduling parameter (spec.md §3). It is built once by
// Load+Derive and then passed by pointer to every collaborator; nothing
// downstream mutates it.
type Settings struct {
	// -- run configuration (from INI / CLI) --

	NumCores int

	FFTPoints         int
	FFTIntegSeconds   float64
	FFTOverlapFactor  int
	WindowType        WindowType
	BandwidthHz       float64
	SamplingFreq      float64 // 2 * BandwidthHz

	PCalOffsetHz     float64
	PCalHarmonicsHz  float64 // tone spacing
	ExtractPCal      bool

	DoCrossPolarization bool
	DoCostasLoop        bool
	PlotProgress        bool

	BitsPerSample         int
	SourceChannels        int
	ChannelsLSBFirst      bool
	UseFile1Channel       int // 1-based
	UseFile2Channel       int // 1-based
	SourceSkipSeconds     int

	// DataReplacementFanout is the VLBA/MKIV/Mk5B "1:N" fanout named in
	// the original format string (e.g. "MKIV1_4"); it scales the header
	// run length the real decoder leaves per frame (160 samples at
	// fanout 1, 320 at fanout 2, 640 at fanout 4). Only meaningful when
	// SourceFormat.DataReplacement() is true.
	DataReplacementFanout int

	MaxSourceBufferMB float64

	SourceFormat   InputFormat
	SinkFormat     OutputFormat

	BaseFilename1 string
	BaseFilename2 string

	NumSources int // 1 or 2, derived from how many input files were given
	NumXPols   int // 1 if two sources and DoCrossPolarization, else 0

	// -- optional ambient components (SPEC_FULL domain stack) --

	PrometheusAddr string // empty disables the /metrics endpoint
	MonitorAddr    string // empty disables the websocket progress feed
	MQTTBrokerURL  string // empty disables the MQTT heartbeat publisher
	MQTTTopic      string
	CompressSink   bool // wrap the binary sink in zstd

	// -- derived (Derive()) --

	FFTSSBPoints int // FFTPoints/2 + 1
	AveragedFFTs int // non-overlapped DFTs per integration
	FFTOverlapPoints int // fft_points / overlap_factor

	RawBytesPerChannelSample float64
	RawFullFFTBytes          int // R = fft_points * bytes_per_sample
	RawOverlapBytes          int
	FFTBytesSSB              int // sizeof(float32) * fft_ssb_points
	FFTBytesXPol             int // 2 * FFTBytesSSB

	RawBufSize int // per-core, per-source raw double-buffer size in bytes

	// Exactly one of these two is nonzero per spec.md §3's core invariant.
	SpectraPerBuffer   int
	BuffersPerSpectrum int

	CoreOverlappedFFTs int // overlapped DFTs one core run performs per (partial) spectrum
	CoreAveragedFFTs   int

	PCalToneBins       int
	PCalRotatorLen     int
	PCalPulsesPerFFT   int

	Dt float64 // 1 / SamplingFreq
	Df float64 // SamplingFreq / FFTPoints

	RunID     string
	StartedAt time.Time
	HostCPUs  int
	HostLoad1 float64 // -1 if unavailable on this platform
}
