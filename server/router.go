package server

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"shooter/server/domain"
	"shooter/server/handler"
)

// Route は /ws と /healthz を登録したハンドラを返します。
func Route(pubsub domain.PubSub, roomManager domain.RoomManager, room handler.RoomStats, cfg domain.EndpointConfig) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(pubsub, roomManager, cfg))
	mux.Handle("/healthz", handler.NewHealthHandler(room))
	return otelhttp.NewHandler(mux, "shooter")
}
