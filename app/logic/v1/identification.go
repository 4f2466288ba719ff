package v1

import (
	"context"
	"log/slog"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/security"
)

type _userInfo struct {
	core *core.Core
	u    *security.TokenClaims
}

func (u *_userInfo) GetUserInfo() security.TokenClaims {
	return *u.u
}

// 变更作者，来自外部鉴权结果而非消息体
func (u *_userInfo) Editor() string {
	return u.u.GetUser()
}

func SetupUserInfo(ctx context.Context, core *core.Core) UserInfo {
	userInfo, ok := InjectTokenClaim(ctx)
	if !ok {
		slog.Error("Not found user in context", slog.String("component", "logic.v1.setupUserInfo"))
		userInfo = security.TokenClaims{}
	}
	return &_userInfo{
		u:    &userInfo,
		core: core,
	}
}

type UserInfo interface {
	GetUserInfo() security.TokenClaims
	Editor() string
}
