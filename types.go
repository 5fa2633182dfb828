package archetypal

// DocumentFormat selects a document encoding.
type DocumentFormat int

const (
	// FormatAuto reads epJSON when the input starts with '{' and the legacy
	// format otherwise. It writes the legacy format.
	FormatAuto DocumentFormat = iota
	FormatIDF
	FormatEpJSON
)

func (f DocumentFormat) String() string {
	switch f {
	case FormatIDF:
		return "idf"
	case FormatEpJSON:
		return "epjson"
	}
	return "auto"
}

// ParseDocumentFormat maps "idf", "epjson" and "auto" to a format.
func ParseDocumentFormat(s string) (DocumentFormat, bool) {
	switch s {
	case "", "auto":
		return FormatAuto, true
	case "idf":
		return FormatIDF, true
	case "epjson", "epJSON":
		return FormatEpJSON, true
	}
	return FormatAuto, false
}

// ParseOpt bundles document parsing options.
type ParseOpt struct {
	Format DocumentFormat
	// Accelerated selects the native legacy tokenizer.
	Accelerated bool
	// Workers bounds parallel field coercion; 0 means GOMAXPROCS.
	Workers   int
	MaxBytes  int64
	MaxFields int
	// SkipResolve leaves references unresolved.
	SkipResolve bool
}

// SerializeOpt bundles document output options.
type SerializeOpt struct {
	Format DocumentFormat
}
