// Package views renders the HTML pages. Every page under templates/pages is
// parsed together with one layout and all partials; a page defines the
// "content" template and a layout defines "layout".
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/storybooks/internal/logger"
	"github.com/patric-chuzhbe/storybooks/internal/requestctx"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

// Layout names.
const (
	LayoutMain  = "main"
	LayoutLogin = "login"
)

//go:embed templates
var embedded embed.FS

// PageData is what every template receives as dot.
type PageData struct {
	// User is the signed-in user or nil.
	User *user.User

	Data any
}

type setKey struct {
	layout string
	page   string
}

// Engine holds the parsed template sets.
type Engine struct {
	defaultLayout string
	sets          map[setKey]*template.Template
}

type initOptions struct {
	FS            fs.FS
	DefaultLayout string
}

// InitOption customizes New.
type InitOption func(*initOptions)

// WithFS replaces the embedded templates. The file system must contain the
// layouts, partials and pages directories at its root.
func WithFS(fsys fs.FS) InitOption {
	return func(o *initOptions) {
		o.FS = fsys
	}
}

func WithDefaultLayout(layout string) InitOption {
	return func(o *initOptions) {
		o.DefaultLayout = layout
	}
}

// New parses every (layout, page) combination up front so that a broken
// template stops the start of the application.
func New(optionsProto ...InitOption) (*Engine, error) {
	options := &initOptions{
		DefaultLayout: LayoutMain,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.FS == nil {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, err
		}
		options.FS = sub
	}

	layouts, err := fs.Glob(options.FS, "layouts/*.html")
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return nil, fmt.Errorf("views: no layouts found")
	}
	partials, err := fs.Glob(options.FS, "partials/*.html")
	if err != nil {
		return nil, err
	}

	var pages []string
	err = fs.WalkDir(options.FS, "pages", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".html") {
			pages = append(pages, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		defaultLayout: options.DefaultLayout,
		sets:          make(map[setKey]*template.Template, len(layouts)*len(pages)),
	}
	for _, layoutFile := range layouts {
		for _, pageFile := range pages {
			set, err := parseSet(options.FS, layoutFile, partials, pageFile)
			if err != nil {
				return nil, err
			}
			key := setKey{
				layout: strings.TrimSuffix(path.Base(layoutFile), ".html"),
				page:   strings.TrimSuffix(strings.TrimPrefix(pageFile, "pages/"), ".html"),
			}
			engine.sets[key] = set
		}
	}

	if !slices.Contains(layouts, "layouts/"+engine.defaultLayout+".html") {
		return nil, fmt.Errorf("views: default layout %q not found", engine.defaultLayout)
	}

	return engine, nil
}

// Each file is parsed under its own path so that equal base names in
// different directories do not clash.
func parseSet(fsys fs.FS, layoutFile string, partials []string, pageFile string) (*template.Template, error) {
	set := template.New(layoutFile).Funcs(Helpers())
	files := append([]string{layoutFile}, partials...)
	files = append(files, pageFile)

	for _, file := range files {
		src, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		if _, err := set.New(file).Parse(string(src)); err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", file, err)
		}
	}
	if set.Lookup("layout") == nil {
		return nil, fmt.Errorf("views: %s does not define \"layout\"", layoutFile)
	}

	return set, nil
}

// Has reports whether page can be rendered with layout.
func (e *Engine) Has(layout, page string) bool {
	_, ok := e.sets[setKey{layout: layout, page: page}]
	return ok
}

// Render writes page inside the default layout with the given status.
func (e *Engine) Render(response http.ResponseWriter, request *http.Request, status int, page string, data any) {
	e.RenderWithLayout(response, request, status, e.defaultLayout, page, data)
}

// RenderWithLayout writes page inside layout with the given status.
func (e *Engine) RenderWithLayout(
	response http.ResponseWriter,
	request *http.Request,
	status int,
	layout string,
	page string,
	data any,
) {
	set, ok := e.sets[setKey{layout: layout, page: page}]
	if !ok {
		logger.Log.Errorw("unknown view", "layout", layout, "page", page)
		http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	view := PageData{
		User: requestctx.User(request.Context()),
		Data: data,
	}
	component := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return set.ExecuteTemplate(w, "layout", view)
	})

	// templ.Handler buffers the page, so a failed render still answers 500.
	templ.Handler(
		component,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			logger.Log.Errorw("rendering view failed", "page", page, zap.Error(err))
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(response, request)
}
