package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

func decodeJSONC(content string) (fileConfig, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return fileConfig{}, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return fileConfig{}, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return fileConfig{}, wrapJSONDecodeError(normalized, err)
	}
	return payload, nil
}

type jsoncState int

const (
	inCode jsoncState = iota
	inString
	inEscape
	inLineComment
	inBlockComment
)

// normalizeJSONC blanks comments and trailing commas with spaces. Byte
// offsets are preserved so decoder errors point at the original text.
func normalizeJSONC(content string) (string, error) {
	buf := []byte(content)
	state := inCode
	comma := -1

	for i := 0; i < len(buf); i++ {
		ch := buf[i]
		switch state {
		case inString:
			switch ch {
			case '\\':
				state = inEscape
			case '"':
				state = inCode
			}
		case inEscape:
			state = inString
		case inLineComment:
			if ch == '\n' || ch == '\r' {
				state = inCode
				continue
			}
			buf[i] = ' '
		case inBlockComment:
			if ch == '*' && i+1 < len(buf) && buf[i+1] == '/' {
				buf[i], buf[i+1] = ' ', ' '
				i++
				state = inCode
				continue
			}
			if ch != '\n' && ch != '\r' && ch != '\t' {
				buf[i] = ' '
			}
		case inCode:
			if ch == '/' && i+1 < len(buf) && (buf[i+1] == '/' || buf[i+1] == '*') {
				state = inLineComment
				if buf[i+1] == '*' {
					state = inBlockComment
				}
				buf[i], buf[i+1] = ' ', ' '
				i++
				continue
			}
			if isJSONWhitespace(ch) {
				continue
			}
			if (ch == '}' || ch == ']') && comma >= 0 {
				buf[comma] = ' '
			}
			comma = -1
			switch ch {
			case ',':
				comma = i
			case '"':
				state = inString
			}
		}
	}

	if state == inBlockComment {
		return "", errors.New("unterminated block comment in JSONC")
	}
	return string(buf), nil
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return err
	}
}

// wrapJSONDecodeError prefixes syntax and type errors with their position.
func wrapJSONDecodeError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol converts a decoder offset (bytes consumed) to the 1-based
// position of the last consumed byte.
func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 1 || content == "" {
		return 1, 1
	}
	consumed := content[:min(int(offset), len(content))]
	before := consumed[:len(consumed)-1]
	line := strings.Count(before, "\n") + 1
	col := len(before) - strings.LastIndexByte(before, '\n')
	return line, col
}
