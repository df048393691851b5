// Package dispatcher implements spec.md §4.5: the single driver thread
// that feeds N worker cores double-buffered raw-sample chunks, joins them
// in order, and assembles their partial or full spectra into sink writes.
// Grounded directly on spec.md §4.5's pseudocode; there is no teacher
// analogue for this exact double-buffered fan-out, so the mechanics are an
// original port while the surrounding idiom (structured logging via
// github.com/sirupsen/logrus-free stdlib log, explicit error wrapping)
// follows the rest of this repository.
package dispatcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cwsl/swspectrometer/internal/buffer"
	"github.com/cwsl/swspectrometer/internal/config"
	"github.com/cwsl/swspectrometer/internal/metrics"
	"github.com/cwsl/swspectrometer/internal/sink"
	"github.com/cwsl/swspectrometer/internal/source"
	"github.com/cwsl/swspectrometer/internal/worker"
)

// Sinks bundles the output destinations a Dispatcher writes to.
type Sinks struct {
	Auto []sink.Sink // one per source
	XPol []sink.Sink // one per cross-pol pair, may be nil
	PCal []sink.Sink // one per source, may be nil if ExtractPCal is false
}

// Dispatcher drives the pipeline core of spec.md §1/§4.5.
type Dispatcher struct {
	cfg     *config.Settings
	sources []source.Source
	sinks   Sinks
	metrics *metrics.Registry

	workers []*worker.Worker
	lastJob []worker.Job // the Job handed to each core's most recent Dispatch

	// dblbuf[core][source][0 or 1]
	dblbuf [][][2]*buffer.Buffer

	channels  []int
	xpolPairs [][2]int

	combinerAuto  [][]complex128
	combinerXPol  [][]complex128
	combinerPCal  [][]complex128
	combinerCount int

	totalSpectra int
}

// New builds a Dispatcher. channels holds the 0-based unpack channel index
// for each source (UseFile1Channel-1, UseFile2Channel-1).
func New(cfg *config.Settings, sources []source.Source, channels []int, sinks Sinks, reg *metrics.Registry) (*Dispatcher, error) {
	if len(sources) != cfg.NumSources {
		return nil, fmt.Errorf("dispatcher: got %d sources, Settings.NumSources=%d", len(sources), cfg.NumSources)
	}

	d := &Dispatcher{
		cfg:      cfg,
		sources:  sources,
		sinks:    sinks,
		metrics:  reg,
		channels: channels,
	}
	if cfg.NumXPols > 0 {
		d.xpolPairs = [][2]int{{0, 1}}
	}

	d.workers = make([]*worker.Worker, cfg.NumCores)
	d.lastJob = make([]worker.Job, cfg.NumCores)
	for c := 0; c < cfg.NumCores; c++ {
		w, err := worker.New(cfg, channels)
		if err != nil {
			return nil, fmt.Errorf("dispatcher: building worker %d: %w", c, err)
		}
		d.workers[c] = w
	}

	d.dblbuf = make([][][2]*buffer.Buffer, cfg.NumCores)
	for c := 0; c < cfg.NumCores; c++ {
		d.dblbuf[c] = make([][2]*buffer.Buffer, cfg.NumSources)
		for s := 0; s < cfg.NumSources; s++ {
			d.dblbuf[c][s][0] = buffer.New(cfg.RawBufSize)
			d.dblbuf[c][s][1] = buffer.New(cfg.RawBufSize)
		}
	}

	ssb := cfg.FFTSSBPoints
	d.combinerAuto = make([][]complex128, cfg.NumSources)
	for s := range d.combinerAuto {
		d.combinerAuto[s] = make([]complex128, ssb)
	}
	d.combinerXPol = make([][]complex128, len(d.xpolPairs))
	for p := range d.combinerXPol {
		d.combinerXPol[p] = make([]complex128, ssb)
	}
	if cfg.ExtractPCal {
		d.combinerPCal = make([][]complex128, cfg.NumSources)
		for s := range d.combinerPCal {
			d.combinerPCal[s] = make([]complex128, cfg.PCalToneBins)
		}
	}

	return d, nil
}

// Run executes spec.md §4.5's main loop until a source EOFs or ctx is
// cancelled, then terminates all workers and closes every sink. A
// cancellation is honored at the next dispatch/refill/join cycle boundary,
// the same place the natural anyEOF&&anyEmpty termination is checked, so a
// worker already mid-FFT always finishes that pass before shutdown runs.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.shutdown()

	for c := 0; c < d.cfg.NumCores; c++ {
		d.workers[c].Start()
		for s := 0; s < d.cfg.NumSources; s++ {
			if _, err := d.fill(c, s, 0); err != nil && err != io.EOF {
				return fmt.Errorf("dispatcher: prefill core %d source %d: %w", c, s, err)
			}
		}
	}

	i := 0
	maxPerRun := d.cfg.SpectraPerBuffer
	if maxPerRun < 1 {
		maxPerRun = 1
	}

	dispatchedAt := make([]time.Time, d.cfg.NumCores)
	for {
		for c := 0; c < d.cfg.NumCores; c++ {
			job := d.buildJob(c, i, maxPerRun)
			d.lastJob[c] = job
			dispatchedAt[c] = time.Now()
			d.workers[c].Dispatch(job)
		}

		next := 1 - i
		anyEOF := false
		anyEmpty := false
		for c := 0; c < d.cfg.NumCores; c++ {
			for s := 0; s < d.cfg.NumSources; s++ {
				n, err := d.fill(c, s, next)
				if err != nil && err != io.EOF {
					return fmt.Errorf("dispatcher: refill core %d source %d: %w", c, s, err)
				}
				if d.sources[s].EOF() {
					anyEOF = true
					if n == 0 {
						anyEmpty = true
					}
				}
			}
		}

		for c := 0; c < d.cfg.NumCores; c++ {
			n := d.workers[c].Join()
			if d.metrics != nil {
				d.metrics.ObserveWorkerRun(c, time.Since(dispatchedAt[c]))
			}
			if err := d.drain(c, n); err != nil {
				return fmt.Errorf("dispatcher: draining core %d: %w", c, err)
			}
		}

		i = next
		if anyEOF && anyEmpty {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

func (d *Dispatcher) fill(core, src, slot int) (int, error) {
	buf := d.dblbuf[core][src][slot]
	start := time.Now()
	n, err := d.sources[src].Read(buf)
	if d.metrics != nil {
		d.metrics.ObserveRefill(core, src, n)
		d.metrics.ObserveRefillDuration(src, time.Since(start))
	}
	return n, err
}

func (d *Dispatcher) buildJob(core, slot, maxPerRun int) worker.Job {
	cfg := d.cfg
	ssb := cfg.FFTSSBPoints
	raw := make([][]byte, cfg.NumSources)
	for s := 0; s < cfg.NumSources; s++ {
		raw[s] = d.dblbuf[core][s][slot].Bytes()
	}

	auto := make([][]complex128, cfg.NumSources)
	for s := range auto {
		auto[s] = make([]complex128, ssb*maxPerRun)
	}
	xpol := make([][]complex128, len(d.xpolPairs))
	for p := range xpol {
		xpol[p] = make([]complex128, ssb*maxPerRun)
	}
	var pcalOut [][]complex128
	if cfg.ExtractPCal {
		pcalOut = make([][]complex128, cfg.NumSources)
		for s := range pcalOut {
			pcalOut[s] = make([]complex128, cfg.PCalToneBins*maxPerRun)
		}
	}

	return worker.Job{
		Raw:       raw,
		Channel:   d.channels,
		Auto:      auto,
		XPol:      xpol,
		XPolPairs: d.xpolPairs,
		PCalOut:   pcalOut,
	}
}

// drain implements the combine-or-flush step of spec.md §4.5's step 3,
// dispatched on whether the run's Job buffers hold n spectrum-worth of
// data, reconstructed from the Dispatch call's own buildJob sizing.
func (d *Dispatcher) drain(core, n int) error {
	if n == 0 {
		return nil
	}
	cfg := d.cfg
	ssb := cfg.FFTSSBPoints
	job := d.lastJob[core]

	if cfg.BuffersPerSpectrum > 1 {
		for s := 0; s < cfg.NumSources; s++ {
			for k := range d.combinerAuto[s] {
				d.combinerAuto[s][k] += job.Auto[s][k]
			}
		}
		for p := range d.xpolPairs {
			for k := range d.combinerXPol[p] {
				d.combinerXPol[p][k] += job.XPol[p][k]
			}
		}
		if cfg.ExtractPCal {
			for s := 0; s < cfg.NumSources; s++ {
				for k := range d.combinerPCal[s] {
					d.combinerPCal[s][k] += job.PCalOut[s][k]
				}
			}
		}
		d.combinerCount++
		if d.combinerCount == cfg.BuffersPerSpectrum {
			if err := d.flushCombiner(); err != nil {
				return err
			}
			d.combinerCount = 0
		}
		return nil
	}

	// Packing regime: n complete spectra sit back-to-back in the job's
	// buffers; write them straight through.
	for s := 0; s < cfg.NumSources; s++ {
		spectra := splitSpectra(job.Auto[s], ssb, n)
		if _, err := d.sinks.Auto[s].Write(spectra); err != nil {
			return err
		}
	}
	if d.metrics != nil {
		d.metrics.IncSpectraEmitted("auto", n*cfg.NumSources)
	}
	for p := range d.xpolPairs {
		spectra := splitSpectra(job.XPol[p], ssb, n)
		if _, err := d.sinks.XPol[p].Write(spectra); err != nil {
			return err
		}
	}
	if d.metrics != nil && len(d.xpolPairs) > 0 {
		d.metrics.IncSpectraEmitted("xpol", n*len(d.xpolPairs))
	}
	if cfg.ExtractPCal {
		for s := 0; s < cfg.NumSources; s++ {
			spectra := splitSpectra(job.PCalOut[s], cfg.PCalToneBins, n)
			if _, err := d.sinks.PCal[s].Write(spectra); err != nil {
				return err
			}
		}
		if d.metrics != nil {
			d.metrics.IncSpectraEmitted("pcal", n*cfg.NumSources)
		}
	}
	d.totalSpectra += n
	return nil
}

func (d *Dispatcher) flushCombiner() error {
	cfg := d.cfg
	inv := complex(1.0/float64(cfg.BuffersPerSpectrum), 0)
	for s := 0; s < cfg.NumSources; s++ {
		out := make([]complex128, len(d.combinerAuto[s]))
		for k, v := range d.combinerAuto[s] {
			out[k] = v * inv
			d.combinerAuto[s][k] = 0
		}
		if _, err := d.sinks.Auto[s].Write([][]complex128{out}); err != nil {
			return err
		}
	}
	if d.metrics != nil {
		d.metrics.IncSpectraEmitted("auto", cfg.NumSources)
	}
	for p := range d.xpolPairs {
		out := make([]complex128, len(d.combinerXPol[p]))
		for k, v := range d.combinerXPol[p] {
			out[k] = v * inv
			d.combinerXPol[p][k] = 0
		}
		if _, err := d.sinks.XPol[p].Write([][]complex128{out}); err != nil {
			return err
		}
	}
	if d.metrics != nil && len(d.xpolPairs) > 0 {
		d.metrics.IncSpectraEmitted("xpol", len(d.xpolPairs))
	}
	if cfg.ExtractPCal {
		for s := 0; s < cfg.NumSources; s++ {
			out := make([]complex128, len(d.combinerPCal[s]))
			for k, v := range d.combinerPCal[s] {
				out[k] = v * inv
				d.combinerPCal[s][k] = 0
			}
			if _, err := d.sinks.PCal[s].Write([][]complex128{out}); err != nil {
				return err
			}
		}
		if d.metrics != nil {
			d.metrics.IncSpectraEmitted("pcal", cfg.NumSources)
		}
	}
	d.totalSpectra++
	return nil
}

// RunID, StartedAt, TotalSpectra and HostLoad1 implement status.Source so a
// Dispatcher can be handed directly to an MQTT heartbeat Publisher.
func (d *Dispatcher) RunID() string        { return d.cfg.RunID }
func (d *Dispatcher) StartedAt() time.Time { return d.cfg.StartedAt }
func (d *Dispatcher) TotalSpectra() int    { return d.totalSpectra }
func (d *Dispatcher) HostLoad1() float64   { return d.cfg.HostLoad1 }

func splitSpectra(flat []complex128, width, n int) [][]complex128 {
	out := make([][]complex128, n)
	for k := 0; k < n; k++ {
		out[k] = flat[k*width : (k+1)*width]
	}
	return out
}

func (d *Dispatcher) shutdown() {
	for _, w := range d.workers {
		w.Terminate()
	}
	if d.metrics != nil {
		if err := d.metrics.Close(); err != nil {
			log.Printf("dispatcher: closing metrics server: %v", err)
		}
	}
	for _, s := range d.sinks.Auto {
		if s != nil {
			if err := s.Close(); err != nil {
				log.Printf("dispatcher: closing auto sink: %v", err)
			}
		}
	}
	for _, s := range d.sinks.XPol {
		if s != nil {
			if err := s.Close(); err != nil {
				log.Printf("dispatcher: closing xpol sink: %v", err)
			}
		}
	}
	for _, s := range d.sinks.PCal {
		if s != nil {
			if err := s.Close(); err != nil {
				log.Printf("dispatcher: closing pcal sink: %v", err)
			}
		}
	}
	for _, src := range d.sources {
		if err := src.Close(); err != nil {
			log.Printf("dispatcher: closing source: %v", err)
		}
	}
}
