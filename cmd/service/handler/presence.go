package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/livetable/app/logic/v1"
	"github.com/quka-ai/livetable/app/response"
)

func (s *HttpSrv) ListActiveUsers(c *gin.Context) {
	users, err := v1.NewPresenceLogic(c, s.Core).ActiveUsers(c.Param("tableid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, users)
}

type LeaveTableResponse struct {
	Removed int64 `json:"removed"`
}

// LeaveTable 移除当前用户在该表上的所有会话
func (s *HttpSrv) LeaveTable(c *gin.Context) {
	removed, err := v1.NewPresenceLogic(c, s.Core).Leave(c.Param("tableid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, LeaveTableResponse{Removed: removed})
}
