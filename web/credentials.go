package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/s0up4200/figureshelf/apiclient"
)

const (
	accessCookieMaxAge  = time.Hour
	refreshCookieMaxAge = 30 * 24 * time.Hour
)

// cookieCredentials carries the tokens of one browser request.
// Requests holding the same refresh token share a key, so their refreshes coalesce.
type cookieCredentials struct {
	*apiclient.MemoryCredentials
	access  string
	refresh string
}

// credentialsFromRequest reads the token cookies. It reports false when neither is present.
func credentialsFromRequest(c *gin.Context) (*cookieCredentials, bool) {
	access, _ := c.Cookie(apiclient.AccessTokenName)
	refresh, _ := c.Cookie(apiclient.RefreshTokenName)
	if access == "" && refresh == "" {
		return nil, false
	}

	owner := refresh
	if owner == "" {
		owner = access
	}
	key := uuid.NewSHA1(uuid.NameSpaceURL, []byte(owner)).String()

	return &cookieCredentials{
		MemoryCredentials: apiclient.NewMemoryCredentials(key, access, refresh),
		access:            access,
		refresh:           refresh,
	}, true
}

// Rotated reports whether a refresh replaced either token during the request
func (cc *cookieCredentials) Rotated() bool {
	return cc.AccessToken() != cc.access || cc.RefreshToken() != cc.refresh
}

// WriteCookies sends rotated tokens back to the browser. It must run before the response body.
func (cc *cookieCredentials) WriteCookies(c *gin.Context, secure bool) {
	if cc == nil || !cc.Rotated() {
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	if token := cc.AccessToken(); token != cc.access {
		c.SetCookie(apiclient.AccessTokenName, token, int(accessCookieMaxAge.Seconds()), "/", "", secure, true)
	}
	if token := cc.RefreshToken(); token != cc.refresh {
		c.SetCookie(apiclient.RefreshTokenName, token, int(refreshCookieMaxAge.Seconds()), "/", "", secure, true)
	}
}
