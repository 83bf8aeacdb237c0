// Package http — админский HTTP-триггер движка: ручной запуск прохода,
// сухой прогон стратегии и парсинг текста без рынка.
package http

import (
	"context"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"auto_trader/internal/engine"
	"auto_trader/internal/models"
	"auto_trader/internal/script"
	"auto_trader/pkg/logger"
)

// Engine — срез движка, нужный триггеру.
type Engine interface {
	RunPass(ctx context.Context) *models.PassReport
	EvaluateStrategy(ctx context.Context, strategyID int64, timeframe string) (*engine.TestResult, error)
	EvaluateScript(ctx context.Context, text, symbol, timeframe string) (*engine.TestResult, error)
}

type Handler struct {
	engine Engine
}

func NewHandler(e Engine) *Handler {
	return &Handler{engine: e}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/engine", func(r chi.Router) {
		r.Post("/evaluate-all", h.evaluateAll)
		r.Post("/evaluate-script", h.evaluateScript)
		r.Post("/parse", h.parse)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (h *Handler) evaluateAll(w http.ResponseWriter, r *http.Request) {
	// проход сам переживает любые ошибки единиц работы
	rep := h.engine.RunPass(r.Context())
	writeJSON(w, http.StatusOK, rep)
}

type evaluateScriptRequest struct {
	StrategyID int64  `json:"strategy_id,omitempty"`
	Script     string `json:"script,omitempty"`
	Symbol     string `json:"symbol,omitempty"`
	Timeframe  string `json:"timeframe,omitempty"`
}

func (h *Handler) evaluateScript(w http.ResponseWriter, r *http.Request) {
	var req evaluateScriptRequest
	if !readJSON(w, r, &req) {
		return
	}

	var (
		res *engine.TestResult
		err error
	)
	if req.StrategyID != 0 {
		res, err = h.engine.EvaluateStrategy(r.Context(), req.StrategyID, req.Timeframe)
	} else {
		res, err = h.engine.EvaluateScript(r.Context(), req.Script, req.Symbol, req.Timeframe)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type parseRequest struct {
	Script string `json:"script"`
}

type parseResponse struct {
	Config models.StrategyConfig `json:"config"`
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !readJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{Config: script.Extract(req.Script)})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	if len(body) == 0 {
		return true // пустое тело — все поля по умолчанию
	}
	if err := sonic.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, code int, err error) {
	logger.Warn("http %d: %v", code, err)
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// Serve поднимает сервер и живёт до отмены контекста.
func Serve(ctx context.Context, addr string, h *Handler) error {
	srv := &http.Server{Addr: addr, Handler: h.Router()}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("admin http listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
