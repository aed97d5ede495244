package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/matsen/bibhub/internal/config"
	"github.com/matsen/bibhub/internal/convert"
	"github.com/matsen/bibhub/internal/format"
)

// contentTypes are the response types for ?raw=true.
var contentTypes = map[format.Format]string{
	format.BibTeX:   "application/x-bibtex; charset=utf-8",
	format.BibLaTeX: "application/x-bibtex; charset=utf-8",
	format.RIS:      "application/x-research-info-systems; charset=utf-8",
	format.EndNote:  "application/xml; charset=utf-8",
	format.CSLJSON:  "application/vnd.citationstyles.csl+json; charset=utf-8",
}

// errTimeout marks a conversion that outlived its request deadline.
var errTimeout = errors.New("conversion timed out")

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) formats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formats": convert.Formats()})
}

// convertText handles POST /convert?from=F&to=G. The body is the source text.
func (s *Server) convertText(c *gin.Context) {
	from, ok := formatParam(c, "from")
	if !ok {
		return
	}
	to, ok := formatParam(c, "to")
	if !ok {
		return
	}
	opts, ok := s.options(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}

	var res convert.Result
	err := run(c.Request.Context(), func() (err error) {
		res, err = convert.ConvertWithOptions(body, from, to, opts)
		return err
	})
	if !handleErr(c, err) {
		return
	}

	if c.Query("raw") == "true" {
		c.Data(http.StatusOK, contentTypes[to], []byte(res.Output))
		return
	}
	c.JSON(http.StatusOK, res)
}

// parse handles POST /parse?from=F and answers with the parse result.
func (s *Server) parse(c *gin.Context) {
	from, ok := formatParam(c, "from")
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}

	var res format.ParseResult
	err := run(c.Request.Context(), func() (err error) {
		res, err = convert.Parse(body, from)
		return err
	})
	if !handleErr(c, err) {
		return
	}
	c.JSON(http.StatusOK, res)
}

// generate handles POST /generate?to=G. The body is canonical JSON.
// Partially invalid input still answers 200 with the failures in warnings.
func (s *Server) generate(c *gin.Context) {
	to, ok := formatParam(c, "to")
	if !ok {
		return
	}
	opts, ok := s.options(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}

	var res convert.Result
	err := run(c.Request.Context(), func() (err error) {
		res, err = convert.ConvertWithOptions(body, format.CSLJSON, to, opts)
		return err
	})
	if !handleErr(c, err) {
		return
	}

	// Elements that fail to decode are reported as warnings; only a body
	// with nothing usable is a bad request.
	if len(res.Parse.Entries) == 0 && res.Parse.HasErrors() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid canonical JSON", "warnings": res.Warnings})
		return
	}
	if c.Query("raw") == "true" {
		c.Data(http.StatusOK, contentTypes[to], []byte(res.Output))
		return
	}
	c.JSON(http.StatusOK, gin.H{"output": res.Output, "warnings": res.Warnings})
}

func formatParam(c *gin.Context, name string) (format.Format, bool) {
	value := c.Query(name)
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter: " + name})
		return "", false
	}
	f, err := format.ParseFormat(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return f, true
}

// options layers sort, indent and line_ending query parameters over the
// server defaults.
func (s *Server) options(c *gin.Context) (format.Options, bool) {
	opts := s.opts
	if v := c.Query("sort"); v != "" {
		sorted, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort: " + v})
			return opts, false
		}
		opts.Sort = sorted
	}
	if v := c.Query("indent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 16 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid indent: " + v})
			return opts, false
		}
		opts.Indent = strings.Repeat(" ", n)
	}
	if v := c.Query("line_ending"); v != "" {
		le, ok := config.ValidLineEndings[v]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line_ending: " + v})
			return opts, false
		}
		opts.LineEnding = le
	}
	return opts, true
}

func readBody(c *gin.Context) (string, bool) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading body failed"})
		return "", false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return "", false
	}
	return string(data), true
}

// run calls fn and waits for it or for ctx, whichever finishes first.
// On timeout fn keeps running; conversions have no side effects.
func run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errTimeout
	}
}

// handleErr writes the error response for err and reports whether the
// handler should continue.
func handleErr(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, format.ErrUnknownFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "conversion failed"})
	}
	return false
}
