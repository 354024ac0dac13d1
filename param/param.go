// Package param provides smoothed node parameters. A parameter holds a
// target value set from the control plane and a current value that ramps
// toward the target on the audio goroutine, removing audible clicks from
// instantaneous jumps.
package param

import (
	"math"
)

// Smoothing selects the ramp law of a parameter.
type Smoothing uint8

const (
	// None applies target values instantly.
	None Smoothing = iota
	// Linear ramps with a constant step over the smoothing time.
	Linear
	// Exponential ramps with a one-pole filter. The coefficient is
	// chosen so the ramp settles within -60dB of the jump over the
	// smoothing time.
	Exponential
)

// snapEpsilon is the distance at which the current value snaps to target.
const snapEpsilon = 1e-6

// Descriptor declares a parameter of a node.
type Descriptor struct {
	Name     string
	Min      float64
	Max      float64
	Default  float64
	Smooth   Smoothing
	SmoothMs float64 // ramp time in milliseconds
}

// Value is the live state of a single parameter. It must only be used by
// the goroutine that processes audio: SetTarget and SetImmediate are
// applied there when control commands are drained.
type Value struct {
	desc    Descriptor
	current float64
	target  float64
	coeff   float64 // one-pole coefficient for Exponential
	samples float64 // ramp length in samples for Linear
	step    float64
	ramping bool
}

func newValue(d Descriptor, sampleRate int) *Value {
	v := &Value{
		desc:    d,
		current: d.Default,
		target:  d.Default,
	}
	if d.SmoothMs > 0 {
		v.samples = float64(sampleRate) * d.SmoothMs / 1000.0
		// -60dB settle over the smoothing time
		v.coeff = math.Exp(-6.908 / v.samples)
	}
	return v
}

// Descriptor returns the declaration of the parameter.
func (v *Value) Descriptor() Descriptor {
	return v.desc
}

func (v *Value) clamp(value float64) float64 {
	if v.desc.Max > v.desc.Min {
		if value < v.desc.Min {
			return v.desc.Min
		}
		if value > v.desc.Max {
			return v.desc.Max
		}
	}
	return value
}

// SetTarget starts a ramp toward the value.
func (v *Value) SetTarget(value float64) {
	value = v.clamp(value)
	if value == v.target {
		return
	}
	v.target = value
	if v.desc.Smooth == None || v.samples == 0 {
		v.current = value
		v.ramping = false
		return
	}
	v.ramping = true
	if v.desc.Smooth == Linear {
		v.step = (v.target - v.current) / v.samples
	}
}

// SetImmediate applies the value without a ramp.
func (v *Value) SetImmediate(value float64) {
	value = v.clamp(value)
	v.current = value
	v.target = value
	v.ramping = false
}

// Next advances the ramp by one sample and returns the current value.
func (v *Value) Next() float64 {
	if !v.ramping {
		return v.current
	}
	switch v.desc.Smooth {
	case Linear:
		v.current += v.step
		if (v.step > 0 && v.current >= v.target) || (v.step < 0 && v.current <= v.target) {
			v.current = v.target
			v.ramping = false
		}
	case Exponential:
		v.current += (v.target - v.current) * (1.0 - v.coeff)
		if math.Abs(v.current-v.target) < snapEpsilon {
			v.current = v.target
			v.ramping = false
		}
	default:
		v.current = v.target
		v.ramping = false
	}
	return v.current
}

// Current returns the current value without advancing the ramp.
func (v *Value) Current() float64 {
	return v.current
}

// Target returns the target value.
func (v *Value) Target() float64 {
	return v.target
}

// Ramping returns true if the value has not yet reached the target.
func (v *Value) Ramping() bool {
	return v.ramping
}

// Set holds the parameters of a single node, addressable by name.
type Set struct {
	values []*Value
	byName map[string]*Value
}

// NewSet binds descriptors to a sample rate.
func NewSet(sampleRate int, descriptors ...Descriptor) *Set {
	s := &Set{
		values: make([]*Value, 0, len(descriptors)),
		byName: make(map[string]*Value, len(descriptors)),
	}
	for _, d := range descriptors {
		v := newValue(d, sampleRate)
		s.values = append(s.values, v)
		s.byName[d.Name] = v
	}
	return s
}

// Get returns the value for the name, nil if not declared.
func (s *Set) Get(name string) *Value {
	if s == nil {
		return nil
	}
	return s.byName[name]
}

// Values returns all values in declaration order.
func (s *Set) Values() []*Value {
	if s == nil {
		return nil
	}
	return s.values
}

// Descriptors returns declarations of all parameters in declaration order.
func (s *Set) Descriptors() []Descriptor {
	if s == nil {
		return nil
	}
	ds := make([]Descriptor, len(s.values))
	for i, v := range s.values {
		ds[i] = v.desc
	}
	return ds
}
