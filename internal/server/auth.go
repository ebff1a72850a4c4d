package server

import (
	"crypto/subtle"
	"net/http"
	"net/netip"
	"strings"

	"go.uber.org/zap"
)

// guardWrites protects the routes that edit the wiki. With a token
// configured the request must carry it; otherwise only loopback peers
// are served.
func (s *Server) guardWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" {
			if !validBearer(r.Header.Get("Authorization"), s.cfg.Token) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="wikitools"`)
				writeError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		if !isLoopback(r.RemoteAddr) {
			s.logger.Warn("rejected run request from remote peer",
				zap.String("remote", r.RemoteAddr),
				zap.String("path", r.URL.Path),
			)
			writeError(w, http.StatusForbidden, "runs may only be started from this machine unless server.token is set")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validBearer(header, token string) bool {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return false
	}
	got := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

// isLoopback reports whether a RemoteAddr ("ip:port") is a loopback address.
func isLoopback(remote string) bool {
	ap, err := netip.ParseAddrPort(remote)
	if err != nil {
		addr, aerr := netip.ParseAddr(remote)
		if aerr != nil {
			return false
		}
		return addr.Unmap().IsLoopback()
	}
	return ap.Addr().Unmap().IsLoopback()
}
