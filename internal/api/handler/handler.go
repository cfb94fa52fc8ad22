package handler

import (
	"vetline/backend/internal/chathub"
	"vetline/backend/internal/config"
	"vetline/backend/internal/storage"
)

// Handler carries the dependencies of the HTTP surface.
type Handler struct {
	Hub     *chathub.Hub
	Storage storage.Storage
	Cfg     *config.Config
}

func NewHandler(hub *chathub.Hub, s storage.Storage, cfg *config.Config) *Handler {
	return &Handler{Hub: hub, Storage: s, Cfg: cfg}
}
