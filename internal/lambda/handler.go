package lambda

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler represents the Lambda handler with its dependencies. API Gateway
// events are served by the same gin router as the standalone server.
type Handler struct {
	adapter *ginadapter.GinLambda
	logger  *zap.Logger
}

// NewHandler creates a new Handler serving requests with router
func NewHandler(router *gin.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		adapter: ginadapter.New(router),
		logger:  logger,
	}
}

// Handle processes API Gateway events. Events that cannot be turned into an
// HTTP request are answered with 400 instead of failing the invocation.
func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	response, err := h.adapter.ProxyWithContext(ctx, request)
	if err != nil {
		h.logger.Warn("rejected malformed event",
			zap.String("method", request.HTTPMethod),
			zap.String("path", request.Path),
			zap.Error(err),
		)
		return events.APIGatewayProxyResponse{
			StatusCode:        http.StatusBadRequest,
			MultiValueHeaders: map[string][]string{"Content-Type": {"application/json"}},
			Body:              `{"error": "malformed API Gateway event"}`,
		}, nil
	}
	return response, nil
}
