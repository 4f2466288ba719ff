package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/quka-ai/livetable/app/core"
	v1 "github.com/quka-ai/livetable/app/logic/v1"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/socket/wsconn"
)

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		return lo.Contains(allowed, r.Header.Get("Origin"))
	}
}

// Websocket upgrades an authenticated request into a synchronization connection.
// One gateway per connection, the read loop owns it until the socket closes.
func Websocket(appCore *core.Core) gin.HandlerFunc {
	localizer := i18n.NewDefaultLocalizer()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(appCore.Cfg().Sync.AllowedOrigins),
	}

	return func(c *gin.Context) {
		claims, _ := v1.InjectTokenClaim(c)
		lang, _ := v1.InjectLanguage(c)

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// upgrader 已经写回了错误响应
			slog.Warn("failed to upgrade websocket", slog.String("error", err.Error()), slog.String("user_id", claims.User))
			c.Abort()
			return
		}

		cfg := appCore.Cfg().Sync
		conn := wsconn.New(ws, claims.User, wsconn.Options{
			SendBuffer:     cfg.SendBuffer,
			MaxMessageSize: cfg.MaxMessageSize,
			PingInterval:   cfg.Heartbeat(),
		})

		appCore.Metrics().ConnectionsAdd(1)
		defer appCore.Metrics().ConnectionsAdd(-1)

		ctx := v1.WithLanguage(v1.WithTokenClaim(c.Request.Context(), claims), lang)
		gateway := v1.NewSyncLogic(ctx, appCore, conn, localizer)
		defer gateway.Close()

		slog.Debug("websocket connected", slog.String("conn_id", conn.ID()), slog.String("user_id", claims.User))
		if err = conn.Run(ctx, gateway.HandleMessage, gateway.OnPong); err != nil {
			slog.Debug("websocket closed", slog.String("conn_id", conn.ID()), slog.String("error", err.Error()))
		}
	}
}
