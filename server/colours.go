package server

import (
	"fmt"
	"net/http"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

var (
	gray = color.New(color.FgHiBlack)
	red  = color.New(color.FgRed)
)

var methodColors = map[string]*color.Color{
	"GET":    color.New(color.FgGreen),
	"POST":   color.New(color.FgBlue),
	"PUT":    color.New(color.FgCyan),
	"DELETE": color.New(color.FgYellow),
	"PATCH":  color.New(color.FgMagenta),
}

func methodColor(method string) *color.Color {
	if c, ok := methodColors[method]; ok {
		return c
	}
	return gray
}

func displayMethod(method string) string {
	return methodColor(method).Sprintf(" %-7s", method)
}

func statusColor(status int) *color.Color {
	switch {
	case status >= http.StatusInternalServerError:
		return red
	case status >= http.StatusBadRequest:
		return methodColors["DELETE"]
	case status >= http.StatusMultipleChoices:
		return methodColors["PUT"]
	}
	return methodColors["GET"]
}

func logRoute(method, path string) {
	fmt.Fprintf(color.Output, "[%s] %s\n", displayMethod(method), path)
}

func (s *Server) logError(method, path, errMsg string) {
	if !s.isDev() {
		log.Error().Str("method", method).Str("path", path).Msg(errMsg)
		return
	}
	fmt.Fprintf(color.Output, "[%s] %s %s\n", displayMethod(method), path, red.Sprint(errMsg))
}
