package middleware

import (
	"net/http"

	"github.com/rdelrosario/sari-pos/api/responses"
	pkgerrors "github.com/rdelrosario/sari-pos/pkg/errors"
	"github.com/rdelrosario/sari-pos/pkg/logger"
)

const (
	deviceIDHeader = "X-Device-Id"
	staffIDHeader  = "X-Staff-Id"
)

// TillContext resolves the till and staff identity from the request headers.
// Every selling surface requires a staff identity; the device id falls back
// to the configured default when a client does not send one.
func TillContext(defaultDeviceID string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			staffID := r.Header.Get(staffIDHeader)
			if staffID == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "X-Staff-Id header is required"))
				return
			}

			deviceID := r.Header.Get(deviceIDHeader)
			if deviceID == "" {
				deviceID = defaultDeviceID
			}

			ctx := WithStaffID(WithDeviceID(r.Context(), deviceID), staffID)
			if logg != nil {
				ctx = logg.WithStaffID(logg.WithDeviceID(ctx, deviceID), staffID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
