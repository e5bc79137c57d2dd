package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/vinizap/zapvenda/pkg/api/errors"
	"github.com/vinizap/zapvenda/pkg/logger"
	"github.com/vinizap/zapvenda/pkg/whatsapp"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WhatsAppHandler handles WhatsApp connection endpoints
type WhatsAppHandler struct {
	poller *whatsapp.Poller
	log    logger.Logger
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(poller *whatsapp.Poller, log logger.Logger) *WhatsAppHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &WhatsAppHandler{poller: poller, log: log}
}

// Connect godoc
// @Summary Start connecting an instance
// @Description Starts polling the provider until the instance reports connected.
// @Tags WhatsApp
// @Produce json
// @Param instance path string true "Instance name"
// @Success 202 {object} whatsapp.Connection
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/whatsapp/{instance}/connect [post]
func (h *WhatsAppHandler) Connect(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.poller.Connect(ctx, c.Param("instance"))
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusAccepted, conn)
}

// Status godoc
// @Summary Get the connection state of an instance
// @Tags WhatsApp
// @Produce json
// @Param instance path string true "Instance name"
// @Success 200 {object} whatsapp.Connection
// @Router /api/v1/whatsapp/{instance}/status [get]
func (h *WhatsAppHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.poller.Status(ctx, c.Param("instance"))
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, conn)
}

// Disconnect godoc
// @Summary Disconnect an instance
// @Tags WhatsApp
// @Produce json
// @Param instance path string true "Instance name"
// @Success 200 {object} whatsapp.Connection
// @Router /api/v1/whatsapp/{instance}/disconnect [post]
func (h *WhatsAppHandler) Disconnect(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.poller.Disconnect(ctx, c.Param("instance"))
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, conn)
}

// Stream godoc
// @Summary Stream connection state changes over a websocket
// @Description Sends the current state, then every change, as JSON messages.
// @Tags WhatsApp
// @Param instance path string true "Instance name"
// @Router /api/v1/whatsapp/{instance}/stream [get]
func (h *WhatsAppHandler) Stream(c echo.Context) error {
	instance := c.Param("instance")

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "instance", instance, "error", err)
		return nil
	}
	defer ws.Close()

	updates, unsubscribe := h.poller.Subscribe(instance)
	defer unsubscribe()

	current, err := h.poller.Status(c.Request().Context(), instance)
	if err != nil {
		return nil
	}
	if err := ws.WriteJSON(current); err != nil {
		return nil
	}

	// reader detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return nil
		case conn, ok := <-updates:
			if !ok {
				return nil
			}
			if err := ws.WriteJSON(conn); err != nil {
				return nil
			}
		}
	}
}
