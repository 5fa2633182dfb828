package legacy

import (
	"sync"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/internal/engine"
	"github.com/samuelduchesne/archetypal-core/internal/native"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

// Statement is one raw legacy record: an object type and its field tokens.
type Statement = engine.Statement

// Result is the coercion outcome of one field token.
type Result = native.Result

// Driver tokenizes legacy text and coerces field tokens. Implementations
// must agree with the reference driver on every input; they may only be
// faster.
type Driver interface {
	Tokenize(data []byte) ([]Statement, diag.Issues)
	// Coerce types tokens[i] against specs[i]. It is called concurrently.
	Coerce(tokens []string, specs []*schema.FieldSpec) []Result
	Name() string
}

// ReferenceDriver returns the state-machine scanner and value.Coerce.
func ReferenceDriver() Driver { return referenceDriver{} }

// NativeDriver returns the bulk tokenizer and the numeric batch fast path.
func NativeDriver() Driver { return nativeDriver{} }

type referenceDriver struct{}

func (referenceDriver) Tokenize(data []byte) ([]Statement, diag.Issues) { return engine.ScanAll(data) }

func (referenceDriver) Coerce(tokens []string, specs []*schema.FieldSpec) []Result {
	out := make([]Result, len(tokens))
	for i, tok := range tokens {
		v, err := value.Coerce(tok, specs[i])
		out[i] = Result{Value: v, Err: err}
	}
	return out
}

func (referenceDriver) Name() string { return "reference" }

type nativeDriver struct{}

func (nativeDriver) Tokenize(data []byte) ([]Statement, diag.Issues) {
	return native.TokenizeBulk(data)
}

func (nativeDriver) Coerce(tokens []string, specs []*schema.FieldSpec) []Result {
	return native.ValidateNumericBatch(tokens, specs)
}

func (nativeDriver) Name() string { return "native" }

var (
	driverMu      sync.RWMutex
	currentDriver Driver = referenceDriver{}
)

// SetDriver replaces the process-wide default driver; nil is ignored.
func SetDriver(d Driver) {
	if d == nil {
		return
	}
	driverMu.Lock()
	currentDriver = d
	driverMu.Unlock()
}

// UseDefaultDriver restores the reference driver as the default.
func UseDefaultDriver() {
	driverMu.Lock()
	currentDriver = referenceDriver{}
	driverMu.Unlock()
}

func getDriver() Driver {
	driverMu.RLock()
	d := currentDriver
	driverMu.RUnlock()
	return d
}
