package action

import (
	"fmt"
	"strconv"
	"strings"
)

// formatText replaces placeholders in text:
//
//	{input} {output}          all paths, space separated
//	{input[i]} {output[i]}    a single path
//	{threads}                 granted thread count
//	{wildcards.NAME} {NAME}   wildcard values
//
// {{ and }} produce literal braces. quote is applied to every substituted
// path or value.
func formatText(text string, inv Invocation, quote func(string) string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '{' && i+1 < len(text) && text[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(text) && text[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(text[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated placeholder at offset %d", i)
			}
			val, err := resolvePlaceholder(text[i+1:i+end], inv, quote)
			if err != nil {
				return "", err
			}
			sb.WriteString(val)
			i += end
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

func resolvePlaceholder(name string, inv Invocation, quote func(string) string) (string, error) {
	base, index, hasIndex, err := splitIndex(name)
	if err != nil {
		return "", err
	}

	switch base {
	case "input", "output":
		paths := inv.Inputs
		if base == "output" {
			paths = inv.Outputs
		}
		if hasIndex {
			if index >= len(paths) {
				return "", fmt.Errorf("placeholder {%s}: only %d %s path(s)", name, len(paths), base)
			}
			return quote(paths[index]), nil
		}
		quoted := make([]string, len(paths))
		for i, p := range paths {
			quoted[i] = quote(p)
		}
		return strings.Join(quoted, " "), nil
	case "threads":
		if hasIndex {
			return "", fmt.Errorf("placeholder {%s}: threads is not indexable", name)
		}
		return strconv.Itoa(inv.Threads), nil
	}

	if hasIndex {
		return "", fmt.Errorf("placeholder {%s}: wildcards are not indexable", name)
	}
	wc := strings.TrimPrefix(base, "wildcards.")
	if v, ok := inv.Bindings[wc]; ok {
		return quote(v), nil
	}
	return "", fmt.Errorf("unknown placeholder {%s}", name)
}

func splitIndex(name string) (base string, index int, hasIndex bool, err error) {
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return strings.TrimSpace(name), 0, false, nil
	}
	if !strings.HasSuffix(name, "]") {
		return "", 0, false, fmt.Errorf("malformed placeholder {%s}", name)
	}
	index, err = strconv.Atoi(name[open+1 : len(name)-1])
	if err != nil || index < 0 {
		return "", 0, false, fmt.Errorf("malformed index in placeholder {%s}", name)
	}
	return strings.TrimSpace(name[:open]), index, true, nil
}

// shellQuote wraps s in single quotes for /bin/sh unless it is made only
// of characters the shell never interprets.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=+,@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func noQuote(s string) string { return s }
