package manifest

import "time"

// Window is a half-open range of UTC hours [StartHour, EndHour) in which
// frames are retained.
type Window struct {
	StartHour int `json:"start_hour" yaml:"start_hour"`
	EndHour   int `json:"end_hour" yaml:"end_hour"`
}

// DefaultWindow retains frames captured between 07:00:00 and 17:59:59 UTC.
var DefaultWindow = Window{StartHour: 7, EndHour: 18}

// AllDay retains every frame.
var AllDay = Window{StartHour: 0, EndHour: 24}

// Contains reports whether t falls inside the window, evaluated in UTC.
func (w Window) Contains(t time.Time) bool {
	h := t.UTC().Hour()
	return h >= w.StartHour && h < w.EndHour
}

// IsZero reports whether the window is unset.
func (w Window) IsZero() bool {
	return w.StartHour == 0 && w.EndHour == 0
}

// Valid reports whether the window bounds are usable hours.
func (w Window) Valid() bool {
	return w.StartHour >= 0 && w.EndHour <= 24 && w.StartHour < w.EndHour
}
