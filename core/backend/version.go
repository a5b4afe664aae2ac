package backend

import (
	"net/http"

	"github.com/relabs-tech/restkit/core/logger"
)

var (
	// Version is the version of the curent build
	Version = "unset"
)

func (b *Backend) handleVersion() {
	logger.Default().Debugln("version")
	logger.Default().Debugln("  handle version route: /version GET")
	b.router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"version": Version})
	}).Methods(http.MethodGet)
}
