package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/quka-ai/livetable/app/core"
	v1 "github.com/quka-ai/livetable/app/logic/v1"
	"github.com/quka-ai/livetable/app/response"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/security"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/utils"
)

func I18n() gin.HandlerFunc {
	return response.ProvideResponseLocalizer(i18n.NewDefaultLocalizer())
}

// AcceptLanguage 目前服务端支持 en: English, zh-CN: 简体中文
func AcceptLanguage() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		lang := ctx.Request.Header.Get("Accept-Language")
		if lang == "" {
			ctx.Set(v1.LANGUAGE_KEY, types.LANGUAGE_EN_KEY)
			return
		}

		res := utils.ParseAcceptLanguage(lang)
		if len(res) == 0 {
			ctx.Set(v1.LANGUAGE_KEY, types.LANGUAGE_EN_KEY)
			return
		}

		ctx.Set(v1.LANGUAGE_KEY, lo.If(strings.Contains(res[0].Tag, "zh"), types.LANGUAGE_CN_KEY).Else(types.LANGUAGE_EN_KEY))
	}
}

const (
	AUTH_TOKEN_HEADER_KEY = "Authorization"
	TOKEN_QUERY_KEY       = "token"
)

// Identity resolves the caller from the upstream auth collaborator. In header mode the
// configured header carries the user id, in jwt mode a bearer token signed by the auth service.
// Browsers cannot set headers on websocket handshakes, so the token query parameter is accepted too.
func Identity(appCore *core.Core) gin.HandlerFunc {
	cfg := appCore.Cfg().Identity
	return func(c *gin.Context) {
		credential := c.GetHeader(cfg.Header)
		if cfg.Mode == core.IDENTITY_MODE_JWT || credential == "" {
			credential = strings.TrimPrefix(c.GetHeader(AUTH_TOKEN_HEADER_KEY), "Bearer ")
		}
		if credential == "" {
			credential = c.Query(TOKEN_QUERY_KEY)
		}
		if credential == "" {
			response.APIError(c, errors.New("middleware.Identity", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized))
			return
		}

		user, err := appCore.ParseIdentity(credential)
		if err != nil || user == "" {
			response.APIError(c, errors.New("middleware.Identity.ParseIdentity", i18n.ERROR_UNAUTHORIZED, err).Code(http.StatusUnauthorized))
			return
		}

		appid, ok := v1.InjectAppid(c)
		if !ok {
			appid = types.DEFAULT_APPID
		}
		c.Set(v1.TOKEN_CONTEXT_KEY, security.NewTokenClaims(appid, user, 0))
		c.Set(response.UserKey, user)
	}
}

func SetAppid() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(v1.APPID_KEY, types.DEFAULT_APPID)
	}
}

func Cors(c *gin.Context) {
	method := c.Request.Method
	origin := c.Request.Header.Get("Origin")
	if origin != "" {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization, X-User-Id")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Cache-Control, Content-Language, Content-Type")
		c.Header("Access-Control-Allow-Credentials", "true")
	}
	if method == "OPTIONS" {
		c.AbortWithStatus(http.StatusNoContent)
	}
	c.Next()
}

// Metrics records the response time of every route and counts failed responses.
func Metrics(appCore *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		api := c.FullPath()
		if api == "" {
			api = "unknown"
		}
		timer := appCore.Metrics().ApiResponseTimer(api)
		c.Next()
		timer.ObserveDuration()

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			appCore.Metrics().ApiErrorInc(c.Request.Method, api, status)
		}
	}
}
