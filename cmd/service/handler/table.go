package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/livetable/app/logic/v1"
	"github.com/quka-ai/livetable/app/response"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/utils"
)

type CreateTableRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *HttpSrv) CreateTable(c *gin.Context) {
	var req CreateTableRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	table, err := v1.NewTableLogic(c, s.Core).CreateTable(req.Name, req.Description)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, table)
}

// ListTablesRequest 分页可选, pagesize 为 0 时返回全部表
type ListTablesRequest struct {
	Page     uint64 `json:"page" form:"page"`
	PageSize uint64 `json:"pagesize" form:"pagesize" binding:"omitempty,lte=100"`
}

func (s *HttpSrv) ListTables(c *gin.Context) {
	var req ListTablesRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}
	if req.PageSize != types.NO_PAGINATION && req.Page == 0 {
		req.Page = 1
	}

	list, err := v1.NewTableLogic(c, s.Core).ListTables(req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, list)
}

func (s *HttpSrv) GetTable(c *gin.Context) {
	snapshot, err := v1.NewTableLogic(c, s.Core).GetSnapshot(c.Param("tableid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, snapshot)
}

func (s *HttpSrv) ReplaceTable(c *gin.Context) {
	var req v1.ReplaceTableRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	snapshot, err := v1.NewTableLogic(c, s.Core).ReplaceTable(c.Param("tableid"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, snapshot)
}

type UpdateTableMetaRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *HttpSrv) UpdateTableMeta(c *gin.Context) {
	var req UpdateTableMetaRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	table, err := v1.NewTableLogic(c, s.Core).RenameTable(c.Param("tableid"), req.Name, req.Description)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, table)
}

func (s *HttpSrv) DeleteTable(c *gin.Context) {
	if err := v1.NewTableLogic(c, s.Core).DeleteTable(c.Param("tableid")); err != nil {
		response.APIError(c, err)
		return
	}
	response.APINoContent(c)
}
