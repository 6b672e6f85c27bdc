package stream

import (
	"io"
	"net/http"
)

// EventWriter Reframer 的输出端
type EventWriter interface {
	WriteEvent(e Event) error
	WriteSentinel() error
}

// SSEWriter 把事件编码成帧写入 w，w 支持 http.Flusher 时每帧刷新一次
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func NewSSEWriter(w io.Writer) *SSEWriter {
	sw := &SSEWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// SetHeaders 写入流式响应头
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

func (s *SSEWriter) WriteEvent(e Event) error {
	frame, err := EncodeFrame(e)
	if err != nil {
		return err
	}
	return s.write(frame)
}

func (s *SSEWriter) WriteSentinel() error {
	return s.write(SentinelFrame)
}

func (s *SSEWriter) write(frame []byte) error {
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
