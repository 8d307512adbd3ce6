package handlers

import (
	"github.com/zfogg/inkwell/internal/repository"
	"github.com/zfogg/inkwell/internal/storage"
	"github.com/zfogg/inkwell/internal/teardown"
	"github.com/zfogg/inkwell/internal/vote"
)

// maxImageSize bounds cover and post image uploads
const maxImageSize = 10 << 20

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	ledger   *vote.Ledger
	content  repository.ContentRepository
	teardown *teardown.Service
	uploader storage.ImageUploader
	checks   []HealthCheck
}

// NewHandlers creates a new handlers instance
func NewHandlers(ledger *vote.Ledger, content repository.ContentRepository, td *teardown.Service) *Handlers {
	return &Handlers{
		ledger:   ledger,
		content:  content,
		teardown: td,
	}
}

// SetUploader enables the image upload endpoints
func (h *Handlers) SetUploader(uploader storage.ImageUploader) {
	h.uploader = uploader
}

// AddHealthCheck registers a dependency probed by the health endpoint
func (h *Handlers) AddHealthCheck(check HealthCheck) {
	h.checks = append(h.checks, check)
}
