package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/utils"
)

const flashKey = "flash"

// Flash consumes the pending flash. Attach it only to page loaders that
// return the toast; any other route leaves the cookie for the next page.
func Flash(store *utils.FlashStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if f := store.Pop(c); f != nil {
			c.Set(flashKey, f)
		}
		c.Next()
	}
}

func FlashFrom(c *gin.Context) *utils.Flash {
	v, ok := c.Get(flashKey)
	if !ok {
		return nil
	}
	f, _ := v.(*utils.Flash)
	return f
}
