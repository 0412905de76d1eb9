package hops

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/modsim/hops-sub002/rng"
)

// Record labels written by the recorder layers.
const (
	LabelStates           = "states"
	LabelAcceptanceRates  = "acceptance_rates"
	LabelTimestamps       = "timestamps"
	LabelNegLogLikelihood = "negative_log_likelihood"
)

// Writer receives recorded series. The on-disk format, if any, is up to the
// implementation.
type Writer interface {
	Write(label string, values [][]float64) error
}

// Recorder is implemented by layers that store one record per chain sample.
type Recorder interface {
	StoreRecord()
	WriteHistory(w Writer) error
	ClearHistory()
}

// AcceptanceRater is implemented by the Metropolis–Hastings filter.
type AcceptanceRater interface {
	AcceptanceRate() float64
}

type recorderBase struct {
	inner Drawer
	next  Recorder
}

func newRecorderBase(inner Drawer) recorderBase {
	b := recorderBase{inner: inner}
	b.next, _ = inner.(Recorder)
	return b
}

func (b *recorderBase) Draw(s *rng.Stream) (bool, error) { return b.inner.Draw(s) }
func (b *recorderBase) State() []float64                 { return b.inner.State() }
func (b *recorderBase) Unwrap() any                      { return b.inner }

func (b *recorderBase) storeNext() {
	if b.next != nil {
		b.next.StoreRecord()
	}
}

func (b *recorderBase) writeNext(w Writer) error {
	if b.next != nil {
		return b.next.WriteHistory(w)
	}
	return nil
}

func (b *recorderBase) clearNext() {
	if b.next != nil {
		b.next.ClearHistory()
	}
}

// StateRecorder records the current state.
type StateRecorder struct {
	recorderBase
	states [][]float64
}

func NewStateRecorder(inner Drawer) *StateRecorder {
	return &StateRecorder{recorderBase: newRecorderBase(inner)}
}

func (r *StateRecorder) StoreRecord() {
	r.states = append(r.states, r.inner.State())
	r.storeNext()
}

func (r *StateRecorder) WriteHistory(w Writer) error {
	if err := w.Write(LabelStates, r.states); err != nil {
		return errors.Wrap(err, "writing states")
	}
	return r.writeNext(w)
}

func (r *StateRecorder) ClearHistory() {
	r.states = nil
	r.clearNext()
}

// States returns the recorded states. The returned slice must not be
// modified. ClearHistory starts a new slice, so a result obtained before it
// is not overwritten by later records.
func (r *StateRecorder) States() [][]float64 { return r.states }

// AcceptanceRateRecorder records the running acceptance rate of the
// Metropolis–Hastings filter below it.
type AcceptanceRateRecorder struct {
	recorderBase
	rater AcceptanceRater
	rates []float64
}

func NewAcceptanceRateRecorder(inner Drawer) (*AcceptanceRateRecorder, error) {
	rater, ok := As[AcceptanceRater](inner)
	if !ok {
		return nil, errors.Newf("hops: %T has no acceptance rate to record", inner)
	}
	return &AcceptanceRateRecorder{recorderBase: newRecorderBase(inner), rater: rater}, nil
}

func (r *AcceptanceRateRecorder) StoreRecord() {
	r.rates = append(r.rates, r.rater.AcceptanceRate())
	r.storeNext()
}

func (r *AcceptanceRateRecorder) WriteHistory(w Writer) error {
	if err := w.Write(LabelAcceptanceRates, column(r.rates)); err != nil {
		return errors.Wrap(err, "writing acceptance rates")
	}
	return r.writeNext(w)
}

func (r *AcceptanceRateRecorder) ClearHistory() {
	r.rates = nil
	r.clearNext()
}

// TimestampRecorder records the seconds elapsed since it was created.
type TimestampRecorder struct {
	recorderBase
	now   func() time.Time
	start time.Time
	times []float64
}

func NewTimestampRecorder(inner Drawer) *TimestampRecorder {
	return newTimestampRecorder(inner, time.Now)
}

func newTimestampRecorder(inner Drawer, now func() time.Time) *TimestampRecorder {
	return &TimestampRecorder{recorderBase: newRecorderBase(inner), now: now, start: now()}
}

func (r *TimestampRecorder) StoreRecord() {
	r.times = append(r.times, r.now().Sub(r.start).Seconds())
	r.storeNext()
}

func (r *TimestampRecorder) WriteHistory(w Writer) error {
	if err := w.Write(LabelTimestamps, column(r.times)); err != nil {
		return errors.Wrap(err, "writing timestamps")
	}
	return r.writeNext(w)
}

func (r *TimestampRecorder) ClearHistory() {
	r.times = nil
	r.clearNext()
}

// LikelihoodRecorder records the negative log likelihood of the current
// state.
type LikelihoodRecorder struct {
	recorderBase
	reporter LikelihoodReporter
	nll      []float64
}

func NewLikelihoodRecorder(inner Drawer) (*LikelihoodRecorder, error) {
	rep, ok := As[LikelihoodReporter](inner)
	if !ok {
		return nil, errors.Newf("hops: %T has no likelihood to record", inner)
	}
	return &LikelihoodRecorder{recorderBase: newRecorderBase(inner), reporter: rep}, nil
}

func (r *LikelihoodRecorder) StoreRecord() {
	r.nll = append(r.nll, r.reporter.StateNegativeLogLikelihood())
	r.storeNext()
}

func (r *LikelihoodRecorder) WriteHistory(w Writer) error {
	if err := w.Write(LabelNegLogLikelihood, column(r.nll)); err != nil {
		return errors.Wrap(err, "writing likelihoods")
	}
	return r.writeNext(w)
}

func (r *LikelihoodRecorder) ClearHistory() {
	r.nll = nil
	r.clearNext()
}

func column(v []float64) [][]float64 {
	out := make([][]float64, len(v))
	for i, x := range v {
		out[i] = []float64{x}
	}
	return out
}

// MemoryWriter is a Writer that keeps every series in memory. Repeated
// writes to a label append. It is safe for concurrent use.
type MemoryWriter struct {
	mu     sync.Mutex
	series map[string][][]float64
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{series: make(map[string][][]float64)}
}

func (m *MemoryWriter) Write(label string, values [][]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.series[label] = append(m.series[label], append([]float64(nil), v...))
	}
	if _, ok := m.series[label]; !ok {
		m.series[label] = nil
	}
	return nil
}

// Series returns the values written under label.
func (m *MemoryWriter) Series(label string) [][]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.series[label]
}

// Labels returns the written labels in sorted order.
func (m *MemoryWriter) Labels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	labels := make([]string, 0, len(m.series))
	for l := range m.series {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
