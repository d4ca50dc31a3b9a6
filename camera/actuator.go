package camera

import "github.com/beamline/pointingsim/pv"

// An Actuator holds the readback variables of one open-loop tip/tilt
// stage. Both readbacks are placeholders with no recompute task: they only
// change when the stage model publishes into them.
type Actuator struct {
	Steps   *pv.Variable
	Voltage *pv.Variable
}

func newActuator(g *pv.Group) *Actuator {
	return &Actuator{
		Steps:   g.ReadOnlyInt("STEPS", 0).WithDoc("Integer steps"),
		Voltage: g.ReadOnlyInt("VOLTAGE", 0).WithDoc("16 bit voltage"),
	}
}
