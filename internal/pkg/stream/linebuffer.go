package stream

import "bytes"

// LineBuffer 按字节累积网络分片，只在遇到 '\n' 时才把完整行转换成字符串。
// 跨分片截断的多字节字符会在下一次 Write 后被拼回完整的一行。
type LineBuffer struct {
	buf []byte
}

// Write 追加一个分片
func (b *LineBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Next 弹出第一条完整的行，去掉一个结尾的 '\r'
func (b *LineBuffer) Next() (string, bool) {
	idx := bytes.IndexByte(b.buf, '\n')
	if idx < 0 {
		return "", false
	}
	line := b.buf[:idx]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	s := string(line)

	rest := b.buf[idx+1:]
	if len(rest) == 0 {
		b.buf = b.buf[:0]
	} else {
		b.buf = append(b.buf[:0], rest...)
	}
	return s, true
}

// Rest 取出未以换行结尾的剩余内容并清空缓冲
func (b *LineBuffer) Rest() string {
	line := b.buf
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	s := string(line)
	b.buf = b.buf[:0]
	return s
}

// Len 缓冲中尚未成行的字节数
func (b *LineBuffer) Len() int {
	return len(b.buf)
}
