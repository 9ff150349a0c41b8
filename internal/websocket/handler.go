package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该检查 Origin
		return true
	},
}

// WebSocketHandler WebSocket 处理器
// 路径参数 id 为订阅的请求 ID,"all" 表示订阅全部事件
func WebSocketHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 解析订阅目标
		requestID := c.Param("id")
		if requestID == "all" {
			requestID = ""
		}

		// 2. 升级连接
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
			return
		}

		// 3. 创建客户端,操作人信息由外层网关注入
		client := NewClient(
			uuid.New().String(),
			c.GetHeader("X-User-ID"),
			requestID,
			hub,
			conn,
		)

		// 4. 注册客户端
		hub.Register <- client

		// 5. 启动 readPump 和 writePump
		go client.ReadPump()
		go client.WritePump()
	}
}
