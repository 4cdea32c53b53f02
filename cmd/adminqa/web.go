// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"embed"
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jllopis/adminqa/pkg/access"
	"github.com/jllopis/adminqa/pkg/config"
	"github.com/jllopis/adminqa/pkg/core"
	"github.com/jllopis/adminqa/pkg/errors"
	adminmcp "github.com/jllopis/adminqa/pkg/mcp"
	"github.com/jllopis/adminqa/pkg/query"
)

//go:embed web/templates/*.html web/static/*
var webFS embed.FS

var (
	webPartials = template.Must(template.New("partials").ParseFS(webFS,
		"web/templates/data_table.html",
		"web/templates/answer.html",
	))
	indexPage = template.Must(template.New("layout").ParseFS(webFS,
		"web/templates/layout.html",
		"web/templates/index.html",
		"web/templates/data_table.html",
		"web/templates/answer.html",
	))
)

type webServer struct {
	app     *app
	limiter *rateLimiter
	logger  *slog.Logger
}

type roleOption struct {
	Value    string
	Selected bool
}

type tableData struct {
	Role    string
	Scope   string
	Columns []string
	Rows    [][]string
	Empty   bool
	Message string
}

type answerData struct {
	Question string
	Answer   string
	Warning  string
	Error    string
	Hint     string
}

type pageData struct {
	Title   string
	Version string
	Model   string
	Roles   []roleOption
	Table   tableData
	Answer  *answerData
}

type answerJSON struct {
	Role   string `json:"role"`
	Answer string `json:"answer"`
	Found  bool   `json:"found"`
	Rows   int    `json:"rows"`
	RunID  string `json:"run_id"`
}

type healthJSON struct {
	Status core.HealthStatus   `json:"status"`
	Checks []core.HealthResult `json:"checks"`
}

func runServe(ctx context.Context, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	cmd := flag.NewFlagSet("serve", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	addr := cmd.String("addr", cfg.Web.Addr, "listen address")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("serve", err.Error())
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           newWebServer(a, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	displayAddr := *addr
	if strings.HasPrefix(displayAddr, ":") {
		displayAddr = "localhost" + displayAddr
	}
	logger.Info("adminqa UI listening", "url", "http://"+displayAddr, "json", flags.JSON)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func newWebServer(a *app, logger *slog.Logger) *webServer {
	return &webServer{
		app:     a,
		limiter: newRateLimiter(a.cfg.Web.RateLimit.Requests, a.cfg.Web.RateLimit.Window, a.cfg.Web.TrustProxy, logger),
		logger:  logger,
	}
}

func (s *webServer) routes() http.Handler {
	mux := http.NewServeMux()

	staticFS, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /data", s.handleData)
	mux.Handle("POST /ask", s.limiter.wrap(http.HandlerFunc(s.handleAsk), s.handleLimited))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("/mcp", s.limiter.wrap(adminmcp.NewServer("adminqa", version, s.app.service).HTTPHandler(), s.handleLimited))
	return mux
}

func roleFromRequest(r *http.Request) (access.Role, bool) {
	raw := strings.TrimSpace(r.FormValue("role"))
	if raw == "" {
		return access.DefaultRole, true
	}
	return access.ParseRole(raw)
}

func (s *webServer) table(role access.Role) tableData {
	view := s.app.service.View(role)
	data := tableData{
		Role:    string(role),
		Scope:   access.Describe(role),
		Columns: view.Columns(),
		Rows:    view.Rows(),
		Empty:   view.Empty(),
	}
	if data.Empty {
		data.Message = query.MsgEmptyScope
	}
	return data
}

func (s *webServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	role, ok := roleFromRequest(r)
	if !ok {
		role = access.DefaultRole
	}
	options := make([]roleOption, 0, len(access.Roles()))
	for _, rr := range access.Roles() {
		options = append(options, roleOption{Value: string(rr), Selected: rr == role})
	}
	renderPage(w, pageData{
		Title:   "Admin Panel Q&A",
		Version: version,
		Model:   s.app.cfg.LLM.Model,
		Roles:   options,
		Table:   s.table(role),
	})
}

func (s *webServer) handleData(w http.ResponseWriter, r *http.Request) {
	role, ok := roleFromRequest(r)
	if !ok {
		renderPartial(w, http.StatusBadRequest, "data_table", tableData{Empty: true, Message: fmt.Sprintf("Unknown role %q.", r.FormValue("role"))})
		return
	}
	renderPartial(w, http.StatusOK, "data_table", s.table(role))
}

func (s *webServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	role := access.Role(strings.TrimSpace(r.PostFormValue("role")))
	if role == "" {
		role = access.DefaultRole
	}
	question := r.PostFormValue("question")

	ans, err := s.app.service.Ask(r.Context(), query.Request{
		Credential: r.PostFormValue("api_key"),
		Role:       role,
		Question:   question,
	})

	if wantsJSON(r) {
		if err != nil {
			typed := errors.As(err)
			writeJSON(w, typed.HTTPStatus(), map[string]any{"error": typed})
			return
		}
		writeJSON(w, http.StatusOK, answerJSON{
			Role: string(role), Answer: ans.Text, Found: ans.Found, Rows: ans.Rows, RunID: ans.RunID,
		})
		return
	}

	data := answerData{Question: strings.TrimSpace(question)}
	switch {
	case err == nil:
		data.Answer = ans.Text
	case errors.As(err).IsValidation():
		data.Warning = errors.As(err).Message
	default:
		data.Error = errors.As(err).Detail()
		data.Hint = query.MsgAgentHint
	}
	renderPartial(w, http.StatusOK, "answer", data)
}

func (s *webServer) handleLimited(w http.ResponseWriter, r *http.Request) {
	const msg = "Too many questions. Please try again later."
	if wantsJSON(r) || r.URL.Path == "/mcp" {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate_limit_exceeded", "message": msg})
		return
	}
	renderPartial(w, http.StatusTooManyRequests, "answer", answerData{Warning: msg})
}

func (s *webServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	results, status := s.app.health.CheckAll(r.Context())
	code := http.StatusOK
	if status == core.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthJSON{Status: status, Checks: results})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func renderPage(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.ExecuteTemplate(w, "layout", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func renderPartial(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := webPartials.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render partial failed", "template", name, "error", err)
	}
}
