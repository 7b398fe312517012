package hw

import "codeberg.org/mutker/pentactl/internal/errors"

const (
	ErrPWMInitFailed    = errors.ErrorCode("hw_pwm_init_failed")
	ErrPWMWriteFailed   = errors.ErrorCode("hw_pwm_write_failed")
	ErrGPIOInitFailed   = errors.ErrorCode("hw_gpio_init_failed")
	ErrGPIOReadFailed   = errors.ErrorCode("hw_gpio_read_failed")
	ErrSensorReadFailed = errors.ErrorCode("hw_sensor_read_failed")
	ErrInvalidDutyCycle = errors.ErrorCode("hw_invalid_duty_cycle")
)
