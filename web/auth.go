package web

import (
	"net/http"
	"strings"
)

// 角色，权限从低到高
const (
	RoleScorer          = "scorer"
	RoleTournamentAdmin = "tournament_admin"
	RoleSuperAdmin      = "super_admin"
)

var roleRank = map[string]int{
	RoleScorer:          1,
	RoleTournamentAdmin: 2,
	RoleSuperAdmin:      3,
}

// Authorizer 判定请求是否具备所需角色。
// 真正的用户体系是外部协作方，这里只定义边界接口
type Authorizer interface {
	Authorize(r *http.Request, requiredRole string) bool
}

// TokenAuthorizer 静态令牌表实现: token -> role
type TokenAuthorizer struct {
	tokens map[string]string
}

func NewTokenAuthorizer(tokens map[string]string) *TokenAuthorizer {
	return &TokenAuthorizer{tokens: tokens}
}

// Authorize 令牌表为空时放行（开发环境），否则要求角色不低于所需
func (a *TokenAuthorizer) Authorize(r *http.Request, requiredRole string) bool {
	if len(a.tokens) == 0 {
		return true
	}

	token := r.Header.Get("X-Api-Token")
	if token == "" {
		auth := r.Header.Get("Authorization")
		token = strings.TrimPrefix(auth, "Bearer ")
	}

	role, ok := a.tokens[token]
	if !ok {
		return false
	}
	return roleRank[role] >= roleRank[requiredRole]
}
