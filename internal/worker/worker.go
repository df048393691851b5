// Package worker implements spec.md §4.4: one OS-thread-owning worker that
// consumes a run's worth of raw sample bytes from every source, runs the
// overlapped windowed DFT accumulator (and optional PCal accumulator), and
// emits partial or full integrated spectra into dispatcher-owned output
// buffers. The state machine and mutex hand-off protocol is grounded on
// spec.md §4.4's own description; there is no teacher analogue for a
// bespoke cooperative thread-pool, so this is an original port of the
// protocol rather than an adaptation of existing Go code.
package worker

import (
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/cwsl/swspectrometer/internal/config"
	"github.com/cwsl/swspectrometer/internal/dftpack"
	"github.com/cwsl/swspectrometer/internal/pcal"
	"github.com/cwsl/swspectrometer/internal/unpack"
	"github.com/cwsl/swspectrometer/internal/window"
)

// Stage is the worker's position in the NONE/RAWDATA/FFTDONE/EXIT state
// machine of spec.md §4.4.
type Stage int32

const (
	StageNone Stage = iota
	StageRawData
	StageFFTDone
	StageExit
)

// Job is the per-run input/output wiring the dispatcher sets before
// releasing the worker's mutex. Auto, XPol and PCalOut are flat buffers
// sized to hold every spectrum this run may complete back to back (more
// than one in the spectrum-packing regime); the worker advances its own
// cursors into them.
type Job struct {
	Raw       [][]byte       // one slice per source, this run's unconsumed raw bytes
	Channel   []int          // unpack channel index per source
	Auto      [][]complex128 // one SSB-length-per-spectrum accumulator per source
	XPol      [][]complex128 // one SSB-length-per-spectrum accumulator per cross-pol pair
	XPolPairs [][2]int       // source index pairs matching XPol, e.g. {{0,1}}
	PCalOut   [][]complex128 // one tone-count-per-spectrum accumulator per source, nil if disabled
}

// Worker owns one cooperative worker goroutine and its per-worker mutex.
type Worker struct {
	cfg       *config.Settings
	unpackers []unpack.Unpacker
	pcals     []pcal.Extractor
	window    []float64
	dft       *dftpack.Real

	mu        sync.Mutex
	stage     Stage
	terminate bool
	job       Job
	completed int

	coeffs [][]complex128 // per-source DFT output, reused across iterations
}

// New builds a Worker against channels channels[s] for each of
// cfg.NumSources sources. The returned Worker's mutex starts locked,
// matching spec.md §4.4's "dispatcher has taken the mutex" initial state;
// callers must call Start to launch the goroutine.
func New(cfg *config.Settings, channels []int) (*Worker, error) {
	w := &Worker{cfg: cfg}

	win, err := window.Generate(cfg.WindowType, cfg.FFTPoints)
	if err != nil {
		return nil, err
	}
	w.window = win
	w.dft = dftpack.NewReal(cfg.FFTPoints)

	w.unpackers = make([]unpack.Unpacker, cfg.NumSources)
	w.coeffs = make([][]complex128, cfg.NumSources)
	for s := 0; s < cfg.NumSources; s++ {
		u, err := unpack.Select(cfg, channels[s])
		if err != nil {
			return nil, err
		}
		w.unpackers[s] = u
	}

	if cfg.ExtractPCal {
		w.pcals = make([]pcal.Extractor, cfg.NumSources)
		for s := 0; s < cfg.NumSources; s++ {
			ext, err := pcal.New(cfg)
			if err != nil {
				return nil, err
			}
			w.pcals[s] = ext
		}
	}

	w.mu.Lock()
	return w, nil
}

// Start launches the worker goroutine. It immediately blocks trying to
// acquire the (already-locked) mutex until the dispatcher's first Dispatch
// releases it.
func (w *Worker) Start() { go w.loop() }

func (w *Worker) loop() {
	for {
		w.mu.Lock()
		if w.terminate {
			w.stage = StageExit
			w.mu.Unlock()
			return
		}
		w.stage = StageRawData
		w.completed = w.run(w.job)
		w.stage = StageFFTDone
		w.mu.Unlock()
	}
}

// Dispatch hands the worker a new run's job. Callers must hold the
// worker's mutex (i.e. have just called Join, or this is the first call
// after New) before calling Dispatch; Dispatch releases it.
func (w *Worker) Dispatch(job Job) {
	w.job = job
	w.mu.Unlock()
}

// Join spins with Gosched/relock until FFTDONE is observed, then returns
// the count of spectra completed this run, leaving the mutex locked (the
// worker is now "at rest" per spec.md §4.4) for the next Dispatch.
func (w *Worker) Join() int {
	for {
		w.mu.Lock()
		if w.stage == StageFFTDone {
			n := w.completed
			w.stage = StageNone
			return n
		}
		w.mu.Unlock()
		runtime.Gosched()
	}
}

// Terminate must be called while the caller holds the mutex (after Join
// returned). It wakes the worker goroutine, which transitions to EXIT and
// returns.
func (w *Worker) Terminate() {
	w.terminate = true
	w.mu.Unlock()
}

// run implements spec.md §4.4's inner algorithm for one dispatcher hand-
// off. It returns the number of full integrated spectra completed.
func (w *Worker) run(job Job) int {
	cfg := w.cfg
	overlapBytes := cfg.RawOverlapBytes
	fullFFTBytes := cfg.RawFullFFTBytes
	hop := fullFFTBytes - overlapBytes
	ssb := cfg.FFTSSBPoints
	nSources := len(job.Raw)

	srcOffset := make([]int, nSources)
	autoOff := make([]int, nSources)
	xpolOff := make([]int, len(job.XPolPairs))
	pcalOff := make([]int, nSources)

	rawRemaining := minLen(job.Raw)
	unpacked := make([]float64, cfg.FFTPoints)

	ffts := 0
	spectraCompleted := 0
	pcalDue := cfg.FFTOverlapFactor
	if pcalDue < 1 {
		pcalDue = 1
	}

	for rawRemaining >= fullFFTBytes {
		for s := 0; s < nSources; s++ {
			w.unpackers[s].Extract(job.Raw[s][srcOffset[s]:], unpacked, cfg.FFTPoints, job.Channel[s])

			if w.pcals != nil && ffts%pcalDue == 0 {
				w.pcals[s].ExtractAndIntegrate(unpacked)
			}

			window.Apply(unpacked, w.window)
			w.coeffs[s] = w.dft.Transform(unpacked, w.coeffs[s])

			coeffs := w.coeffs[s]
			re0 := real(coeffs[0])
			reN2 := real(coeffs[ssb-1])
			auto := job.Auto[s][autoOff[s] : autoOff[s]+ssb]
			auto[0] += complex(re0*re0, 0)
			auto[ssb-1] += complex(reN2*reN2, 0)
			for k := 1; k < ssb-1; k++ {
				c := coeffs[k]
				auto[k] += complex(real(c)*real(c)+imag(c)*imag(c), 0)
			}

			srcOffset[s] += overlapBytes
		}

		for p, pair := range job.XPolPairs {
			i, j := pair[0], pair[1]
			ci, cj := w.coeffs[i], w.coeffs[j]
			re0i, reN2i := real(ci[0]), real(ci[ssb-1])
			re0j, reN2j := real(cj[0]), real(cj[ssb-1])
			xp := job.XPol[p][xpolOff[p] : xpolOff[p]+ssb]
			xp[0] += complex(re0i*re0j, 0)
			xp[ssb-1] += complex(reN2i*reN2j, 0)
			for k := 1; k < ssb-1; k++ {
				xp[k] += ci[k] * cmplx.Conj(cj[k])
			}
		}

		ffts++
		rawRemaining -= overlapBytes

		if ffts == cfg.CoreOverlappedFFTs {
			inv := complex(1.0/float64(cfg.CoreOverlappedFFTs), 0)
			for s := 0; s < nSources; s++ {
				auto := job.Auto[s][autoOff[s] : autoOff[s]+ssb]
				for k := range auto {
					auto[k] *= inv
				}
				autoOff[s] += ssb

				if w.pcals != nil {
					out := job.PCalOut[s][pcalOff[s] : pcalOff[s]+w.pcals[s].NumTones()]
					w.pcals[s].GetFinalPCal(out)
					w.pcals[s].Clear()
					pcalOff[s] += w.pcals[s].NumTones()
				}
			}
			for p := range job.XPolPairs {
				xp := job.XPol[p][xpolOff[p] : xpolOff[p]+ssb]
				for k := range xp {
					xp[k] *= inv
				}
				xpolOff[p] += ssb
			}

			spectraCompleted++
			ffts = 0
			for s := 0; s < nSources; s++ {
				srcOffset[s] += hop
			}
			rawRemaining -= hop
		}
	}

	return spectraCompleted
}

func minLen(bufs [][]byte) int {
	if len(bufs) == 0 {
		return 0
	}
	m := len(bufs[0])
	for _, b := range bufs[1:] {
		if len(b) < m {
			m = len(b)
		}
	}
	return m
}
