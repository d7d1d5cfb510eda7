package handler

import (
	"fmt"
	"net/http"
)

// RoomStats は稼働中のルームの状態を返します。
type RoomStats interface {
	Sessions() int
}

// NewHealthHandler は liveness を返します。room が nil でなければ接続数も含めます。
func NewHealthHandler(room RoomStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if room == nil || r.Method == http.MethodHead {
			return
		}
		fmt.Fprintf(w, "ok sessions=%d\n", room.Sessions())
	}
}
