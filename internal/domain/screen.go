package domain

// Screen identifies which view the console shows.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenForm
)

func (s Screen) String() string {
	switch s {
	case ScreenHome:
		return "home"
	case ScreenForm:
		return "form"
	default:
		return "unknown"
	}
}
