// Package extractor locates a labeled percentage value in rendered page text.
//
// Extraction is a pure function of its input. Strategies are tried in order
// and the first match wins; a miss is a normal result, not an error.
package extractor

// Value is an extracted percentage, kept as display text (e.g. "4.25%").
type Value struct {
	// Display is the formatted percentage.
	Display string

	// Strategy names the strategy that produced the value.
	Strategy string
}

// String returns the display form.
func (v Value) String() string {
	return v.Display
}

// Strategy is one independent way of finding the value in text.
type Strategy interface {
	// Name identifies the strategy in logs and results.
	Name() string

	// Match returns the first value found, or false.
	Match(text string) (Value, bool)
}

// Extractor extracts a value from text.
type Extractor interface {
	Extract(text string) (Value, bool)
}
