package realtime

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// STOMP 1.2 命令
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdDisconnect  = "DISCONNECT"
	CmdMessage     = "MESSAGE"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
)

// ErrEmptyFrame 心跳帧，只有换行
var ErrEmptyFrame = errors.New("empty frame")

// Frame 一个STOMP帧
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame 按键值对创建帧
func NewFrame(command string, kv ...string) Frame {
	f := Frame{Command: command, Headers: make(map[string]string, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Headers[kv[i]] = kv[i+1]
	}
	return f
}

// Header 读取头部
func (f Frame) Header(name string) string {
	return f.Headers[name]
}

// Encode 序列化为以NUL结尾的文本帧，头部按名称排序
// CONNECT/CONNECTED帧的头部不转义
func (f Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	names := make([]string, 0, len(f.Headers))
	for name := range f.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	escape := f.Command != CmdConnect && f.Command != CmdConnected
	for _, name := range names {
		value := f.Headers[name]
		if escape {
			name, value = escapeHeader(name), escapeHeader(value)
		}
		buf.WriteString(name)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Decode 解析一个帧
func Decode(data []byte) (Frame, error) {
	// 帧前允许若干心跳换行
	data = bytes.TrimLeft(data, "\r\n")
	if len(data) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}

	headerEnd := bytes.Index(data, []byte("\n\n"))
	sepLen := 2
	if crlf := bytes.Index(data, []byte("\r\n\r\n")); crlf >= 0 && (headerEnd < 0 || crlf < headerEnd) {
		headerEnd, sepLen = crlf, 4
	}
	var head, body []byte
	if headerEnd < 0 {
		head = data
	} else {
		head, body = data[:headerEnd], data[headerEnd+sepLen:]
	}

	lines := strings.Split(strings.ReplaceAll(string(head), "\r\n", "\n"), "\n")
	f := Frame{Command: lines[0], Headers: make(map[string]string, len(lines)-1)}
	if f.Command == "" {
		return Frame{}, errors.New("frame without command")
	}
	unescape := f.Command != CmdConnect && f.Command != CmdConnected
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return Frame{}, fmt.Errorf("malformed header %q", line)
		}
		if unescape {
			name, value = unescapeHeader(name), unescapeHeader(value)
		}
		// 重复头部以第一次出现为准
		if _, exists := f.Headers[name]; !exists {
			f.Headers[name] = value
		}
	}
	if len(body) > 0 {
		f.Body = append([]byte(nil), body...)
	}
	return f, nil
}

var (
	headerEscaper   = strings.NewReplacer("\\", `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)
	headerUnescaper = strings.NewReplacer(`\\`, "\\", `\r`, "\r", `\n`, "\n", `\c`, ":")
)

func escapeHeader(s string) string   { return headerEscaper.Replace(s) }
func unescapeHeader(s string) string { return headerUnescaper.Replace(s) }
