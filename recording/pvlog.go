package recording

import (
	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/sim"
)

// pvSampleTable is the table all scalar samples go into.
const pvSampleTable = "pv_samples"

// PVSample is one committed scalar write, stamped with the simulation time
// it was committed at.
type PVSample struct {
	Time     float64
	Path     string
	Value    float64
	External bool
}

// A PVLogger records every committed scalar write of a registry into a
// DataRecorder. Array commits are skipped; frames are too large to store
// row by row.
type PVLogger struct {
	recorder   DataRecorder
	timeTeller sim.TimeTeller
}

// NewPVLogger creates a PVLogger and prepares its sample table.
func NewPVLogger(
	recorder DataRecorder,
	timeTeller sim.TimeTeller,
) *PVLogger {
	l := &PVLogger{
		recorder:   recorder,
		timeTeller: timeTeller,
	}

	recorder.CreateTable(pvSampleTable, PVSample{})

	return l
}

// Attach subscribes the logger to all commits of the registry.
func (l *PVLogger) Attach(r *pv.Registry) {
	r.OnCommit(l.RecordCommit)
}

// RecordCommit stores one committed write.
func (l *PVLogger) RecordCommit(v *pv.Variable, val pv.Value, external bool) {
	if val.Kind().IsArray() {
		return
	}

	sample := PVSample{
		Time:     float64(l.timeTeller.CurrentTime()),
		Path:     v.Path(),
		External: external,
	}

	switch val.Kind() {
	case pv.Int:
		sample.Value = float64(val.Int())
	case pv.Float:
		sample.Value = val.Float()
	}

	l.recorder.InsertData(pvSampleTable, sample)
}
