package activity

// Kind identifies a user interaction signal.
type Kind string

// Interaction signals that count as activity.
const (
	KindMouseDown  Kind = "mousedown"
	KindMouseMove  Kind = "mousemove"
	KindKeyPress   Kind = "keypress"
	KindScroll     Kind = "scroll"
	KindTouchStart Kind = "touchstart"
	KindClick      Kind = "click"
	KindKeyDown    Kind = "keydown"
)

var recognized = map[Kind]struct{}{
	KindMouseDown:  {},
	KindMouseMove:  {},
	KindKeyPress:   {},
	KindScroll:     {},
	KindTouchStart: {},
	KindClick:      {},
	KindKeyDown:    {},
}

// Recognized reports whether k resets the idle clock.
func Recognized(k Kind) bool {
	_, ok := recognized[k]
	return ok
}

// Kinds returns every recognized interaction signal.
func Kinds() []Kind {
	return []Kind{
		KindMouseDown,
		KindMouseMove,
		KindKeyPress,
		KindScroll,
		KindTouchStart,
		KindClick,
		KindKeyDown,
	}
}
