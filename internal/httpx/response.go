package httpx

import "github.com/gin-gonic/gin"

func OK(c *gin.Context, v any) {
	c.JSON(200, v)
}

func Created(c *gin.Context, v any) {
	c.JSON(201, v)
}

// Err writes a {"message": ...} body, the error shape every endpoint uses.
func Err(c *gin.Context, code int, msg any) {
	c.JSON(code, gin.H{"message": msg})
}
