// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package backend

import (
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/relabs-tech/restkit/core/logger"
)

// corsHandler answers preflight requests and sets CORS headers on all responses
func corsHandler(h http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"POST", "GET", "OPTIONS", "PUT", "DELETE", "PATCH", "HEAD"}),
		handlers.AllowedHeaders([]string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding",
			"X-CSRF-Token", "Authorization", "If-None-Match", "X-Related-Url"}),
		handlers.ExposedHeaders([]string{"X-Total-Count"}),
		handlers.MaxAge(86400), // 24 hours
	)(h)
}

// Handler wraps the root handler of a service with CORS, compression and
// panic recovery. Panics are logged and answered with 500.
func Handler(h http.Handler) http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.Default()),
		handlers.PrintRecoveryStack(true),
	)
	return corsHandler(handlers.CompressHandler(recovery(h)))
}
