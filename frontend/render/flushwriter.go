package render

import "net/http"

type FlushWriter interface {
	http.ResponseWriter
	http.Flusher
}

// TryFlushWriter returns w as a FlushWriter. Flush is a no-op if w can't be
// flushed.
func TryFlushWriter(w http.ResponseWriter) FlushWriter {
	if fw, ok := w.(FlushWriter); ok {
		return fw
	}
	return noFlusher{w}
}

type noFlusher struct {
	http.ResponseWriter
}

func (noFlusher) Flush() {}
