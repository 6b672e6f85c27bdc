package stream

import (
	"encoding/json"
	"strings"

	"github.com/readmegen/backend/internal/domain"
)

// EventType 事件类型
type EventType string

const (
	EventInfo    EventType = "info"
	EventContent EventType = "content"
	EventError   EventType = "error"
)

const (
	// DataPrefix 事件行前缀
	DataPrefix = "data:"
	// DoneMarker 结束标记
	DoneMarker = "[DONE]"

	// InterruptedMessage 流中断时下发给客户端的固定文案
	InterruptedMessage = "stream interrupted"
)

// SentinelFrame 终止帧，每个流最后写且只写一次
var SentinelFrame = []byte("data: [DONE]\n\n")

// Event 下发给客户端的流事件
type Event struct {
	Type     EventType        `json:"type"`
	RepoInfo *domain.RepoInfo `json:"repoInfo,omitempty"`
	Text     string           `json:"text,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func InfoEvent(info domain.RepoInfo) Event {
	return Event{Type: EventInfo, RepoInfo: &info}
}

func ContentEvent(text string) Event {
	return Event{Type: EventContent, Text: text}
}

func ErrorEvent(message string) Event {
	return Event{Type: EventError, Error: message}
}

// EncodeFrame 编码为 "data: <json>\n\n"
func EncodeFrame(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}

// DataPayload 提取事件行的载荷。
// 空行、":" 开头的注释行以及非 data 行返回 false。
func DataPayload(line string) (string, bool) {
	if line == "" || strings.HasPrefix(line, ":") {
		return "", false
	}
	if !strings.HasPrefix(line, DataPrefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(DataPrefix):]), true
}
