package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

func (cc CookieConfig) set(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cc.Name, token, int(ttl.Seconds()), "/", cc.Domain, cc.Secure, true)
}

func (cc CookieConfig) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cc.Name, "", -1, "/", cc.Domain, cc.Secure, true)
}
