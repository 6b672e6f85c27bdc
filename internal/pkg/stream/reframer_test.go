package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/readmegen/backend/internal/domain"
)

var testInfo = domain.RepoInfo{Name: "Hello-World", Owner: "octocat", Stars: 1000, URL: "https://github.com/octocat/Hello-World"}

// recordingWriter 记录写出的事件
type recordingWriter struct {
	events    []Event
	sentinels int
	// 记录终止帧之后是否还有写入
	afterSentinel int
}

func (w *recordingWriter) WriteEvent(e Event) error {
	if w.sentinels > 0 {
		w.afterSentinel++
	}
	w.events = append(w.events, e)
	return nil
}

func (w *recordingWriter) WriteSentinel() error {
	if w.sentinels > 0 {
		w.afterSentinel++
	}
	w.sentinels++
	return nil
}

func (w *recordingWriter) content() string {
	var b strings.Builder
	for _, e := range w.events {
		if e.Type == EventContent {
			b.WriteString(e.Text)
		}
	}
	return b.String()
}

func deltaLine(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": text}}},
	})
	return "data: " + string(payload) + "\n\n"
}

// chunkReader 按固定分片返回数据
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func splitEvery(data []byte, size int) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, append([]byte{}, data[:n]...))
		data = data[n:]
	}
	return chunks
}

func TestReframerOrdering(t *testing.T) {
	upstream := ": keep-alive\n\n" + deltaLine("# Hello") + "event: ping\n" + deltaLine("") + deltaLine(" World") + "data: [DONE]\n\n" + deltaLine("ignored")
	w := &recordingWriter{}

	stats := NewReframer().Run(context.Background(), testInfo, strings.NewReader(upstream), w)

	if len(w.events) != 3 {
		t.Fatalf("expected 3 events, got %+v", w.events)
	}
	if w.events[0].Type != EventInfo || w.events[0].RepoInfo.Name != "Hello-World" {
		t.Fatalf("first event must be info, got %+v", w.events[0])
	}
	if w.content() != "# Hello World" {
		t.Fatalf("unexpected content: %q", w.content())
	}
	if w.sentinels != 1 || w.afterSentinel != 0 {
		t.Fatalf("sentinel must be written exactly once and last: sentinels=%d after=%d", w.sentinels, w.afterSentinel)
	}
	if !stats.SawDone || stats.Interrupted || stats.ContentEvents != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestReframerSplitChunks(t *testing.T) {
	upstream := []byte(deltaLine("héllo 世界 ") + deltaLine("🚀 done") + "data: [DONE]\n\n")
	for _, size := range []int{1, 2, 3, 7} {
		w := &recordingWriter{}
		NewReframer().Run(context.Background(), testInfo, &chunkReader{chunks: splitEvery(upstream, size)}, w)
		if w.content() != "héllo 世界 🚀 done" {
			t.Fatalf("chunk size %d: unexpected content %q", size, w.content())
		}
		if w.sentinels != 1 {
			t.Fatalf("chunk size %d: expected one sentinel, got %d", size, w.sentinels)
		}
	}
}

func TestReframerCRLF(t *testing.T) {
	upstream := strings.ReplaceAll(deltaLine("a")+deltaLine("b")+"data: [DONE]\n\n", "\n", "\r\n")
	w := &recordingWriter{}
	stats := NewReframer().Run(context.Background(), testInfo, strings.NewReader(upstream), w)
	if w.content() != "ab" || !stats.SawDone {
		t.Fatalf("unexpected content=%q stats=%+v", w.content(), stats)
	}
}

func TestReframerDropsMalformedLines(t *testing.T) {
	upstream := deltaLine("a") + "data: {\"choices\":[{\"delta\":\n" + deltaLine("b") + "data: [DONE]\n"
	w := &recordingWriter{}
	stats := NewReframer().Run(context.Background(), testInfo, strings.NewReader(upstream), w)
	if w.content() != "ab" {
		t.Fatalf("unexpected content: %q", w.content())
	}
	if stats.DroppedLines != 1 {
		t.Fatalf("expected 1 dropped line, got %d", stats.DroppedLines)
	}
}

func TestReframerEOFWithoutDone(t *testing.T) {
	// 最后一行没有换行符
	upstream := deltaLine("a") + strings.TrimSuffix(deltaLine("b"), "\n\n")
	w := &recordingWriter{}
	stats := NewReframer().Run(context.Background(), testInfo, strings.NewReader(upstream), w)
	if w.content() != "ab" {
		t.Fatalf("unexpected content: %q", w.content())
	}
	if stats.SawDone || stats.Interrupted || w.sentinels != 1 {
		t.Fatalf("unexpected stats=%+v sentinels=%d", stats, w.sentinels)
	}
}

func TestReframerReadError(t *testing.T) {
	upstream := &chunkReader{chunks: [][]byte{[]byte(deltaLine("partial"))}, err: errors.New("connection reset")}
	w := &recordingWriter{}
	stats := NewReframer().Run(context.Background(), testInfo, upstream, w)

	last := w.events[len(w.events)-1]
	if last.Type != EventError || last.Error != InterruptedMessage {
		t.Fatalf("expected error event, got %+v", last)
	}
	if w.content() != "partial" || w.sentinels != 1 || w.afterSentinel != 0 {
		t.Fatalf("unexpected content=%q sentinels=%d", w.content(), w.sentinels)
	}
	if !stats.Interrupted {
		t.Fatalf("expected interrupted stats")
	}
}

// blockingBody 在关闭前一直阻塞的上游
type blockingBody struct {
	first  []byte
	closed chan struct{}
}

func (b *blockingBody) Read(p []byte) (int, error) {
	if len(b.first) > 0 {
		n := copy(p, b.first)
		b.first = b.first[n:]
		return n, nil
	}
	<-b.closed
	return 0, errors.New("body closed")
}

func (b *blockingBody) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return nil
}

func TestReframerDeadline(t *testing.T) {
	body := &blockingBody{first: []byte(deltaLine("slow")), closed: make(chan struct{})}
	w := &recordingWriter{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	stats := NewReframer().Run(ctx, testInfo, body, w)

	if !stats.Interrupted || !errors.Is(stats.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline interruption, got %+v", stats)
	}
	last := w.events[len(w.events)-1]
	if last.Type != EventError {
		t.Fatalf("expected trailing error event, got %+v", last)
	}
	if w.sentinels != 1 {
		t.Fatalf("expected one sentinel, got %d", w.sentinels)
	}
	select {
	case <-body.closed:
	default:
		t.Fatalf("expected upstream to be closed")
	}
}

func TestReframerCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &recordingWriter{}
	NewReframer().Run(ctx, testInfo, strings.NewReader(deltaLine("x")), w)
	if len(w.events) != 1 || w.events[0].Type != EventError || w.sentinels != 1 {
		t.Fatalf("unexpected events %+v sentinels=%d", w.events, w.sentinels)
	}
}

func TestSSEWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	if err := w.WriteEvent(ContentEvent("hi")); err != nil {
		t.Fatalf("WriteEvent error: %v", err)
	}
	if err := w.WriteSentinel(); err != nil {
		t.Fatalf("WriteSentinel error: %v", err)
	}
	if !rec.Flushed {
		t.Fatalf("expected recorder to be flushed")
	}
	want := "data: {\"type\":\"content\",\"text\":\"hi\"}\n\ndata: [DONE]\n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

// 服务端输出直接作为客户端输入，拼接结果应与上游一致
func TestReframerConsumerRoundTrip(t *testing.T) {
	deltas := []string{"# Títle\n", "\n## Features\n", "- 🚀 fast\n", "- ü\n"}
	var upstream strings.Builder
	for _, d := range deltas {
		upstream.WriteString(deltaLine(d))
	}
	upstream.WriteString("data: [DONE]\n\n")

	var wire bytes.Buffer
	NewReframer().Run(context.Background(), testInfo, strings.NewReader(upstream.String()), NewSSEWriter(&wire))

	sink := &recordingSink{}
	consumer := NewConsumer(sink, 10*time.Millisecond)
	result, err := consumer.Consume(context.Background(), io.NopCloser(&chunkReader{chunks: splitEvery(wire.Bytes(), 5)}), ConsumeOptions{})
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if result.Content != strings.Join(deltas, "") {
		t.Fatalf("round trip mismatch: %q", result.Content)
	}
	if result.RepoInfo == nil || result.RepoInfo.Name != "Hello-World" {
		t.Fatalf("unexpected repo info: %+v", result.RepoInfo)
	}
}
