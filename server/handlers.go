package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"listenboard/dashboard"
	"listenboard/hub"
	"listenboard/logger"
	"listenboard/model"
	"listenboard/render"
	"listenboard/repository"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	setTermTimeout      = 5 * time.Second
)

// DashboardHandler serves the dashboard page, its live updates and the JSON API.
type DashboardHandler struct {
	ctx        context.Context
	controller *dashboard.Controller
	renderer   *render.Renderer
	hub        *hub.Hub
	history    repository.HistoryRepository // nil 表示未启用归档
	title      string
	upgrader   websocket.Upgrader
}

// NewDashboardHandler 创建处理器。ctx 结束时 WebSocket 消息处理随之取消
func NewDashboardHandler(ctx context.Context, c *dashboard.Controller, r *render.Renderer, h *hub.Hub, history repository.HistoryRepository, title string) *DashboardHandler {
	return &DashboardHandler{
		ctx:        ctx,
		controller: c,
		renderer:   r,
		hub:        h,
		history:    history,
		title:      title,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write json response failed", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// IndexHandler renders the full page from the latest snapshot.
func (h *DashboardHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	snap := h.controller.Snapshot()

	var buf bytes.Buffer
	err := h.renderer.Page(&buf, render.Page{
		Title:    h.title,
		Panels:   snap.Panels,
		Progress: snap.Progress,
	})
	if err != nil {
		logger.Error("render page failed", logger.ErrorField(err))
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// WebSocketHandler 升级连接并推送面板更新
func (h *DashboardHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := hub.NewClient(h.hub, conn)
	h.hub.RegisterWithWelcome(client, func(c *hub.Client) {
		snap := h.controller.Snapshot()
		c.SendMessage(hub.MsgTypePanels, snap.Panels)
		c.SendMessage(hub.MsgTypeProgress, snap.Progress)
	})

	go client.WritePump()
	go client.ReadPump(h.ctx, h.handleMessage)

	logger.Debug("websocket connected",
		logger.String("client", client.ID),
		logger.String("remote", r.RemoteAddr))
}

func (h *DashboardHandler) handleMessage(ctx context.Context, c *hub.Client, msg *hub.WSMessage) {
	switch msg.Type {
	case hub.MsgTypeSetTerm:
		var data hub.SetTermData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.SendMessage(hub.MsgTypeError, hub.ErrorData{Message: "invalid set_term payload"})
			return
		}
		status, err := h.setTerm(ctx, data.Kind, data.Term)
		if err != nil {
			logger.Debug("set_term rejected", logger.String("client", c.ID), logger.Int("status", status), logger.ErrorField(err))
			c.SendMessage(hub.MsgTypeError, hub.ErrorData{Message: err.Error()})
		}
	default:
		c.SendMessage(hub.MsgTypeError, hub.ErrorData{Message: "unsupported message type: " + string(msg.Type)})
	}
}

// setTerm validates and applies a term change, returning the HTTP status that
// describes the outcome.
func (h *DashboardHandler) setTerm(ctx context.Context, rawKind, rawTerm string) (int, error) {
	kind, ok := dashboard.ParseKind(rawKind)
	if !ok {
		return http.StatusBadRequest, errors.New("unknown term group: " + rawKind)
	}
	term, err := model.ParseTerm(rawTerm)
	if err != nil {
		return http.StatusBadRequest, err
	}

	ctx, cancel := context.WithTimeout(ctx, setTermTimeout)
	defer cancel()
	if err := h.controller.SetTerm(ctx, kind, term); err != nil {
		if errors.Is(err, dashboard.ErrNotRunning) {
			return http.StatusServiceUnavailable, err
		}
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

// SetTermHandler POST /api/terms/{kind}/{term}
func (h *DashboardHandler) SetTermHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	status, err := h.setTerm(r.Context(), vars["kind"], vars["term"])
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.controller.Snapshot().Terms)
}

// SnapshotHandler GET /api/snapshot
func (h *DashboardHandler) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// HistoryHandler GET /api/history?limit=N
func (h *DashboardHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "play history archive is disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("load play history failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to load play history")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HealthHandler GET /healthz
func (h *DashboardHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	snap := h.controller.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"online":        snap.Online,
		"feedTimestamp": snap.FeedTimestamp,
		"viewers":       h.hub.ClientCount(),
	})
}

// RegisterDashboardRoutes 注册仪表盘路由
func RegisterDashboardRoutes(router *mux.Router, handler *DashboardHandler) {
	router.HandleFunc("/", handler.IndexHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws", handler.WebSocketHandler)
	router.HandleFunc("/api/terms/{kind}/{term}", handler.SetTermHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/snapshot", handler.SnapshotHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/history", handler.HistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/healthz", handler.HealthHandler).Methods(http.MethodGet)
	router.PathPrefix("/static/").Handler(StaticHandler())
}
