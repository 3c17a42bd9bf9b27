package out

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ggonzalez94/gud-quote/internal/dialog"
	"github.com/ggonzalez94/gud-quote/internal/model"
)

// Texter is implemented by payloads that have a human-oriented plain rendering.
type Texter interface {
	PlainText() string
}

// Render writes env as an indented JSON envelope, or in plain mode as the bare
// payload followed by warnings.
func Render(w io.Writer, env model.Envelope, mode string) error {
	if mode == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}

	if env.Error != nil {
		if _, err := fmt.Fprintf(w, "error: %s\n", env.Error.Message); err != nil {
			return err
		}
	} else if err := renderPlain(w, env.Data); err != nil {
		return err
	}
	for _, warning := range env.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}

// RenderReply prints a dialog reply for a terminal: the text, then numbered options.
func RenderReply(w io.Writer, reply dialog.Reply) error {
	text := reply.Text
	if reply.Notice {
		text = color.New(color.FgYellow).Sprint(text)
	} else if strings.HasPrefix(text, "Error: ") {
		text = color.New(color.FgRed).Sprint(text)
	}
	if _, err := fmt.Fprintln(w, text); err != nil {
		return err
	}
	index := color.New(color.FgCyan, color.Bold)
	for i, opt := range reply.Options {
		if _, err := fmt.Fprintf(w, "  %s %s\n", index.Sprintf("[%d]", i+1), opt.Label); err != nil {
			return err
		}
	}
	return nil
}

func renderPlain(w io.Writer, data any) error {
	if t, ok := data.(Texter); ok {
		_, err := fmt.Fprintln(w, t.PlainText())
		return err
	}
	v := reflect.ValueOf(data)
	if !v.IsValid() {
		_, err := fmt.Fprintln(w, "null")
		return err
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			line, err := toLine(normalizeValue(v.Index(i).Interface()))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		if v.Len() == 0 {
			_, err := fmt.Fprintln(w, "[]")
			return err
		}
		return nil
	default:
		line, err := toLine(normalizeValue(data))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, line)
		return err
	}
}

func normalizeValue(v any) any {
	buf, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return v
	}
	return out
}

func toLine(v any) (string, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, t[k]))
		}
		return strings.Join(parts, " "), nil
	default:
		buf, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(buf), nil
	}
}
