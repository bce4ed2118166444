package llm

import (
	"context"
	"sync"
)

// Fake is a scripted Completer for tests. Responses are consumed in
// order; when they run out the last one repeats. A nil Respond falls
// back to the scripted responses.
type Fake struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	// Respond, when set, computes the reply per request.
	Respond func(req Request) (string, error)

	calls []Request
}

func (f *Fake) Complete(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)
	if f.Respond != nil {
		return f.Respond(req)
	}
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "", nil
	}
	resp := f.Responses[0]
	if len(f.Responses) > 1 {
		f.Responses = f.Responses[1:]
	}
	return resp, nil
}

// Calls returns a copy of every request seen so far.
func (f *Fake) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

// CallCount returns how many completions were requested.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
