package main

import (
	"context"
	"log"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"

	"github.com/sulu/sulu-sub013/config"
	"github.com/sulu/sulu-sub013/internal/bootstrap"
	"github.com/sulu/sulu-sub013/internal/lambda"
)

func main() {
	ctx := context.Background()
	gin.SetMode(gin.ReleaseMode)

	// Database credentials come from Secrets Manager when a secret is configured
	var cfgProvider config.Provider = config.NewEnvProvider("")
	if os.Getenv("AWS_SECRET_NAME") != "" {
		awsProvider, err := config.NewAWSConfigProvider()
		if err != nil {
			log.Fatal("Failed to create AWS config provider:", err)
		}
		cfgProvider = awsProvider
	}

	app, err := bootstrap.New(ctx, cfgProvider)
	if err != nil {
		log.Fatal("Failed to initialize services:", err)
	}

	// Create handler with the shared router
	handler := lambda.NewHandler(app.Router(), app.Logger.Named("lambda"))

	// Start Lambda
	awslambda.Start(handler.Handle)
}
