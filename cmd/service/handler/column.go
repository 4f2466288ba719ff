package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/livetable/app/logic/v1"
	"github.com/quka-ai/livetable/app/response"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/utils"
)

func (s *HttpSrv) AddColumn(c *gin.Context) {
	var req types.ColumnSpec
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	column, err := v1.NewColumnLogic(c, s.Core).AddColumn(c.Param("tableid"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, column)
}

func (s *HttpSrv) UpdateColumn(c *gin.Context) {
	var req types.ColumnSpec
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	column, err := v1.NewColumnLogic(c, s.Core).UpdateColumn(c.Param("tableid"), c.Param("columnid"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, column)
}

func (s *HttpSrv) DeleteColumn(c *gin.Context) {
	if err := v1.NewColumnLogic(c, s.Core).DeleteColumn(c.Param("tableid"), c.Param("columnid")); err != nil {
		response.APIError(c, err)
		return
	}
	response.APINoContent(c)
}
