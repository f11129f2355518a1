// internal/app/features/photos/handler.go
package photos

import "go.uber.org/zap"

// Opener verifies a signed media link and returns the file it grants.
// localstore.Store implements it.
type Opener interface {
	Open(token string) (string, error)
}

// Handler serves attendance photos kept on the local filesystem.
type Handler struct {
	Files Opener
	Log   *zap.Logger
}

// NewHandler constructs a photos Handler.
func NewHandler(files Opener, logger *zap.Logger) *Handler {
	return &Handler{Files: files, Log: logger}
}
