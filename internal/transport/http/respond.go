// Copyright 2026 The Agora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/agoramarket/agora/internal/errs"
	"github.com/agoramarket/agora/internal/observability/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", logger.Error(err))
		}
	}
}

// respondError renders any error as the uniform JSON error body. Internal
// detail (the wrapped cause) goes to the log; clients only ever see the
// stable code and the client-safe message. Server-caused errors log at
// error severity, client-caused at warn.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errs.From(err)

	attrs := []any{
		logger.RequestID(middleware.GetReqID(r.Context())),
		logger.Method(r.Method),
		logger.Path(r.URL.Path),
		logger.ErrorCode(appErr.Code()),
		logger.Error(err),
	}
	if appErr.ServerCaused() {
		slog.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		slog.WarnContext(r.Context(), "request rejected", attrs...)
	}

	respondJSON(w, appErr.Status(), appErr.ResponseBody())
}
