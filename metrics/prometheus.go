// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/xmargin/xmargin/logging"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Gauge ...
	Gauge instrument = iota
	// Counter ...
	Counter
	// Histogram ...
	Histogram
)

const namespace = "xmargin"

var (
	// ErrInstrumentNotSupported signals the specified instrument is not yet supported.
	ErrInstrumentNotSupported = errors.New("instrument type unsupported")
	// ErrInstrumentTypeMismatch signal the type of the instrument is not expected.
	ErrInstrumentTypeMismatch = errors.New("instrument is not of the expected type")
)

var (
	setupOnce sync.Once
	setupErr  error

	instructionCounter  *prometheus.CounterVec
	instructionDuration *prometheus.HistogramVec
	fillCounter         *prometheus.CounterVec
	liquidationCounter  *prometheus.CounterVec
	bookOrdersGauge     *prometheus.GaugeVec
	eventQueueGauge     *prometheus.GaugeVec
)

// abstract prometheus types.
type instrument int

// combine all possible prometheus options + way to differentiate between regular or vector type.
type instrumentOpts struct {
	opts    prometheus.Opts
	buckets []float64
	vectors []string
}

type mi struct {
	gaugeV     *prometheus.GaugeVec
	gauge      prometheus.Gauge
	counterV   *prometheus.CounterVec
	counter    prometheus.Counter
	histogramV *prometheus.HistogramVec
	histogram  prometheus.Histogram
}

// InstrumentOption - vararg for instrument options setting.
type InstrumentOption func(o *instrumentOpts)

// Vectors - configuration used to create a vector of a given interface, slice of label names.
func Vectors(labels ...string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.vectors = labels
	}
}

// Help - set the help field on instrument.
func Help(help string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Help = help
	}
}

// Namespace - set namespace.
func Namespace(ns string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Namespace = ns
	}
}

// Buckets - specific to histogram type.
func Buckets(b []float64) InstrumentOption {
	return func(o *instrumentOpts) {
		o.buckets = b
	}
}

// AddInstrument configures a new metrics instrument and registers it
// with reg.
func AddInstrument(reg prometheus.Registerer, t instrument, name string, opts ...InstrumentOption) (*mi, error) {
	var col prometheus.Collector
	ret := mi{}
	opt := instrumentOpts{
		opts: prometheus.Opts{
			Name: name,
		},
	}
	for _, o := range opts {
		o(&opt)
	}
	switch t {
	case Gauge:
		o := prometheus.GaugeOpts(opt.opts)
		if len(opt.vectors) == 0 {
			ret.gauge = prometheus.NewGauge(o)
			col = ret.gauge
		} else {
			ret.gaugeV = prometheus.NewGaugeVec(o, opt.vectors)
			col = ret.gaugeV
		}
	case Counter:
		o := prometheus.CounterOpts(opt.opts)
		if len(opt.vectors) == 0 {
			ret.counter = prometheus.NewCounter(o)
			col = ret.counter
		} else {
			ret.counterV = prometheus.NewCounterVec(o, opt.vectors)
			col = ret.counterV
		}
	case Histogram:
		o := opt.histogram()
		if len(opt.vectors) == 0 {
			ret.histogram = prometheus.NewHistogram(o)
			col = ret.histogram
		} else {
			ret.histogramV = prometheus.NewHistogramVec(o, opt.vectors)
			col = ret.histogramV
		}
	default:
		return nil, ErrInstrumentNotSupported
	}
	if err := reg.Register(col); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (i instrumentOpts) histogram() prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   i.opts.Namespace,
		Subsystem:   i.opts.Subsystem,
		Name:        i.opts.Name,
		Help:        i.opts.Help,
		ConstLabels: i.opts.ConstLabels,
		Buckets:     i.buckets,
	}
}

// GaugeVec returns a gauge vector, if it exists.
func (m mi) GaugeVec() (*prometheus.GaugeVec, error) {
	if m.gaugeV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gaugeV, nil
}

// CounterVec returns a counter vector, if it exists.
func (m mi) CounterVec() (*prometheus.CounterVec, error) {
	if m.counterV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counterV, nil
}

// HistogramVec returns a histogram vector, if it exists.
func (m mi) HistogramVec() (*prometheus.HistogramVec, error) {
	if m.histogramV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.histogramV, nil
}

// Setup registers the instruments with the default registry. It is
// safe to call more than once.
func Setup() error {
	setupOnce.Do(func() {
		setupErr = setupMetrics(prometheus.DefaultRegisterer)
	})
	return setupErr
}

// Start registers the instruments and serves them over http when
// enabled. The returned server is nil when metrics are disabled.
func Start(conf Config, log *logging.Logger) (*http.Server, error) {
	if !conf.Enabled {
		return nil, nil
	}
	if err := Setup(); err != nil {
		return nil, errors.Wrap(err, "could not set up metrics")
	}
	mux := http.NewServeMux()
	mux.Handle(conf.Path, promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           mux,
		ReadHeaderTimeout: conf.Timeout.Get(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", logging.Error(err))
		}
	}()
	return srv, nil
}

func setupMetrics(reg prometheus.Registerer) error {
	h, err := AddInstrument(reg,
		Counter,
		"instructions_total",
		Namespace(namespace),
		Vectors("instruction", "result"),
		Help("Number of instructions processed"),
	)
	if err != nil {
		return err
	}
	if instructionCounter, err = h.CounterVec(); err != nil {
		return err
	}

	h, err = AddInstrument(reg,
		Histogram,
		"instruction_seconds",
		Namespace(namespace),
		Vectors("instruction"),
		Buckets([]float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1}),
		Help("Time spent executing an instruction, commit included"),
	)
	if err != nil {
		return err
	}
	if instructionDuration, err = h.HistogramVec(); err != nil {
		return err
	}

	h, err = AddInstrument(reg,
		Counter,
		"fills_total",
		Namespace(namespace),
		Vectors("market"),
		Help("Number of maker fills produced by the books"),
	)
	if err != nil {
		return err
	}
	if fillCounter, err = h.CounterVec(); err != nil {
		return err
	}

	h, err = AddInstrument(reg,
		Counter,
		"liquidations_total",
		Namespace(namespace),
		Vectors("kind"),
		Help("Number of successful liquidation steps"),
	)
	if err != nil {
		return err
	}
	if liquidationCounter, err = h.CounterVec(); err != nil {
		return err
	}

	h, err = AddInstrument(reg,
		Gauge,
		"book_orders",
		Namespace(namespace),
		Vectors("market"),
		Help("Number of orders resting on a book"),
	)
	if err != nil {
		return err
	}
	if bookOrdersGauge, err = h.GaugeVec(); err != nil {
		return err
	}

	h, err = AddInstrument(reg,
		Gauge,
		"event_queue_length",
		Namespace(namespace),
		Vectors("market"),
		Help("Number of events waiting to be consumed"),
	)
	if err != nil {
		return err
	}
	eventQueueGauge, err = h.GaugeVec()
	return err
}

// InstructionObserve counts an instruction and records how long it took.
func InstructionObserve(instruction string, ok bool, start time.Time) {
	if instructionCounter == nil || instructionDuration == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	instructionCounter.WithLabelValues(instruction, result).Inc()
	instructionDuration.WithLabelValues(instruction).Observe(time.Since(start).Seconds())
}

// FillCounterAdd adds n fills to the market counter.
func FillCounterAdd(n int, market string) {
	if fillCounter == nil || n == 0 {
		return
	}
	fillCounter.WithLabelValues(market).Add(float64(n))
}

// LiquidationCounterInc counts a liquidation step of the given kind.
func LiquidationCounterInc(kind string) {
	if liquidationCounter == nil {
		return
	}
	liquidationCounter.WithLabelValues(kind).Inc()
}

// BookGaugesSet updates the order and event queue gauges of a market.
func BookGaugesSet(market string, orders, events int) {
	if bookOrdersGauge == nil || eventQueueGauge == nil {
		return
	}
	bookOrdersGauge.WithLabelValues(market).Set(float64(orders))
	eventQueueGauge.WithLabelValues(market).Set(float64(events))
}
