package tabular

// Option applies a configuration option to a read.
type Option func(*readOptions)

type readOptions struct {
	sheet     string
	delimiter rune // 0 = detect
}

// WithSheet selects the worksheet of an xlsx file. The first sheet is used
// when unset.
func WithSheet(name string) Option {
	return func(o *readOptions) {
		o.sheet = name
	}
}

// WithDelimiter forces the field delimiter of a delimited text file instead of
// detecting it from the header line.
func WithDelimiter(d rune) Option {
	return func(o *readOptions) {
		o.delimiter = d
	}
}
