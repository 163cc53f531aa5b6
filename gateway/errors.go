package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lokmen200/soukstyle/pkg/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var kindStatus = map[service.Kind]int{
	service.KindValidation:      http.StatusBadRequest,
	service.KindUnauthenticated: http.StatusUnauthorized,
	service.KindForbidden:       http.StatusForbidden,
	service.KindNotFound:        http.StatusNotFound,
	service.KindConflict:        http.StatusBadRequest,
}

// respondError writes {"error": message}. Internal errors keep their detail
// in the log only.
func (g *Gateway) respondError(c *gin.Context, err error) {
	status, ok := kindStatus[service.KindOf(err)]
	if !ok {
		g.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": service.MessageOf(err)})
}

// abortWithError is respondError for middleware, which has no Gateway.
func abortWithError(c *gin.Context, err error) {
	status, ok := kindStatus[service.KindOf(err)]
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": service.MessageOf(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pathID parses the named path parameter as an ObjectID, answering 400 when
// it is malformed.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalID parses a hex id from a request body. Empty means unset.
func optionalID(raw string) (primitive.ObjectID, error) {
	if raw == "" {
		return primitive.NilObjectID, nil
	}
	return primitive.ObjectIDFromHex(raw)
}
