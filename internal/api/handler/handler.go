package handler

import (
	"mechmap/backend/internal/auth"
	"mechmap/backend/internal/maphub"
	"mechmap/backend/internal/registry"
	"mechmap/backend/internal/storage"
)

// Handler містить посилання на хаб та сервіси.
type Handler struct {
	Hub      *maphub.Manager
	Auth     *auth.Service
	Storage  storage.Storage
	Registry *registry.Registry
}

func NewHandler(hub *maphub.Manager, authSvc *auth.Service, st storage.Storage, reg *registry.Registry) *Handler {
	return &Handler{Hub: hub, Auth: authSvc, Storage: st, Registry: reg}
}
