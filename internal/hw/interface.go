// Package hw is the seam between the control loops and the board: a PWM
// fan output, a push button input and the SoC thermal sensor. The raw
// register binding lives behind these interfaces so the loops only ever
// see "write a duty cycle" and "read a level".
package hw

// Fan is a PWM fan output. The duty cycle is an off-ratio in
// [0, 0.999]: lower values drive the fan faster, per the Noctua PWM
// white paper convention the Penta HAT fan follows.
type Fan interface {
	SetDutyCycle(offRatio float64) error
	Close() error
}

// Button is a digital input sampled by the gesture recognizer. The line
// is pulled high and goes low while the button is held.
type Button interface {
	Read() (bool, error)
	Close() error
}

// TempSensor reads a temperature in Celsius.
type TempSensor interface {
	Read() (float64, error)
}
