package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for account notification templates.
type EmailData struct {
	Name    string `json:"Name"`
	Email   string `json:"Email"`
	Type    string `json:"Type"`
	AppName string `json:"AppName"`

	CompanyName string `json:"CompanyName"`
	SupportURL  string `json:"SupportURL"`

	Time    string            `json:"Time"`
	Changes map[string]string `json:"Changes"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		zero := reflect.Zero(rv.Type()).Interface()
		if reflect.DeepEqual(value, zero) {
			return fallback
		}
		return value
	}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"now":     func() time.Time { return time.Now().UTC() },
		"upper":   strings.ToUpper,
		"default": defaultFn,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

const (
	Welcome        = "welcome"
	ProfileUpdated = "profile_updated"
	AccountDeleted = "account_deleted"
)

// Known reports whether name has a template set.
func Known(name string) bool {
	switch name {
	case Welcome, ProfileUpdated, AccountDeleted:
		return true
	}
	return false
}

type set struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var (
	parseOnce sync.Once
	sets      map[string]set
	parseErr  error
)

// parseAll compiles every known template set from the embedded FS once.
func parseAll() (map[string]set, error) {
	parseOnce.Do(func() {
		sets = make(map[string]set, 3)
		for _, name := range []string{Welcome, ProfileUpdated, AccountDeleted} {
			var st set
			if st.subject, parseErr = parseText(name + ".subject.tmpl"); parseErr != nil {
				return
			}
			if st.text, parseErr = parseText(name + ".text.tmpl"); parseErr != nil {
				return
			}
			file := name + ".html.tmpl"
			if st.html, parseErr = htmpl.New(file).Funcs(htmlFuncMap).ParseFS(FS, file); parseErr != nil {
				parseErr = fmt.Errorf("parse html %q: %w", file, parseErr)
				return
			}
			sets[name] = st
		}
	})
	return sets, parseErr
}

func parseText(file string) (*texttpl.Template, error) {
	tpl, err := texttpl.New(file).Funcs(textFuncMap).ParseFS(FS, file)
	if err != nil {
		return nil, fmt.Errorf("parse text %q: %w", file, err)
	}
	return tpl, nil
}

type executor interface {
	Execute(w io.Writer, data any) error
	Name() string
}

func exec(t executor, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// Render renders the subject, text and html parts of a known template set.
func Render(name string, data any) (subject string, text string, html string, err error) {
	all, err := parseAll()
	if err != nil {
		return "", "", "", err
	}
	st, ok := all[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}
	if subject, err = exec(st.subject, data); err != nil {
		return "", "", "", err
	}
	if text, err = exec(st.text, data); err != nil {
		return "", "", "", err
	}
	if html, err = exec(st.html, data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
