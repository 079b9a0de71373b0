package control

// DefaultLimit is the magnitude of the stored output bounds.
const DefaultLimit = 500000.0

// PID is a discrete PID controller working on lag registers. Gains are
// passed per call so one controller can be driven with different tunings
// between resets.
//
// The proportional term is incremental (difference of successive weighted
// errors), the integral term is memoryless unless AccumulateIntegral is set,
// and the derivative term is a second difference of the weighted error.
// Min and Max are stored but never applied to the output.
type PID struct {
	// Beta weights the set-point in the proportional error.
	Beta float64
	// Gamma weights the set-point in the derivative error.
	Gamma float64
	// AccumulateIntegral switches the integral term to a running sum.
	AccumulateIntegral bool

	perror [2]float64
	derror [3]float64
	ierror float64

	min float64
	max float64
}

// NewPID returns a controller with zero weights and limits of ±DefaultLimit.
func NewPID() *PID {
	return &PID{min: -DefaultLimit, max: DefaultLimit}
}

// Proportional returns kp times the change in weighted error since the
// previous call.
func (p *PID) Proportional(setpoint, feedback, kp float64) float64 {
	p.perror[0] = p.Beta*setpoint - feedback
	out := kp * (p.perror[0] - p.perror[1])
	p.perror[1] = p.perror[0]
	return out
}

// Integral returns ki*(setpoint-feedback)*dt. The result is stored, not
// summed, unless AccumulateIntegral is set.
func (p *PID) Integral(setpoint, feedback, ki, dt float64) float64 {
	term := ki * (setpoint - feedback) * dt
	if p.AccumulateIntegral {
		p.ierror += term
	} else {
		p.ierror = term
	}
	return p.ierror
}

// Derivative returns kd*(e0 - 2*e1 + e2)/dt over the last three weighted
// errors, then shifts the register.
func (p *PID) Derivative(setpoint, feedback, kd, dt float64) float64 {
	p.derror[0] = p.Gamma*setpoint - feedback
	d := (p.derror[0] - 2*p.derror[1] + p.derror[2]) / dt
	p.derror[2] = p.derror[1]
	p.derror[1] = p.derror[0]
	return kd * d
}

// Compute is the sum of the three terms. dt must be nonzero.
func (p *PID) Compute(setpoint, feedback, kp, ki, kd, dt float64) float64 {
	return p.Proportional(setpoint, feedback, kp) +
		p.Integral(setpoint, feedback, ki, dt) +
		p.Derivative(setpoint, feedback, kd, dt)
}

// SetLimits stores the output bounds. Compute does not clamp to them.
func (p *PID) SetLimits(min, max float64) {
	p.min = min
	p.max = max
}

// Limits reports the stored output bounds.
func (p *PID) Limits() (min, max float64) {
	return p.min, p.max
}

// Reset clears all error history. Weights and limits are kept.
func (p *PID) Reset() {
	p.perror = [2]float64{}
	p.derror = [3]float64{}
	p.ierror = 0
}

// GetParams returns the set-point weights and stored limits by name.
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Beta":  p.Beta,
		"Gamma": p.Gamma,
		"Min":   p.min,
		"Max":   p.max,
	}
}

// SetParam sets one of the parameters named by GetParams. Unknown names
// are ignored.
func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Beta":
		p.Beta = value
	case "Gamma":
		p.Gamma = value
	case "Min":
		p.min = value
	case "Max":
		p.max = value
	}
}
