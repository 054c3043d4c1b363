package frame

type (
	// Value is the snapshot of one Python local variable binding. It is a
	// closed union: String, Int, Float, Bool or None.
	Value interface {
		value()
	}

	String string

	Int int64

	// Float keeps the exact decimal text produced at capture time. It is
	// never parsed into a binary float: these values are only displayed and
	// compared, and textual equality survives serialization round trips
	// where binary float equality would not.
	Float string

	Bool bool

	None struct{}
)

func (String) value() {}
func (Int) value()    {}
func (Float) value()  {}
func (Bool) value()   {}
func (None) value()   {}
