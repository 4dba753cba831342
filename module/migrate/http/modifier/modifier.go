package modifier

import "net/http"

// Modifier modifies an outgoing request before it is sent.
type Modifier interface {
	Modify(*http.Request) error
}

// Func adapts a plain function to Modifier.
type Func func(*http.Request) error

func (f Func) Modify(req *http.Request) error { return f(req) }
