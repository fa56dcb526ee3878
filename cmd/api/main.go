package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Gardusio/coach-client/internal/app"
)

func main() {
	application := app.NewApp(context.Background(), os.Getenv("CONFIG_PATH"))
	lambda.Start(application.HandleRequest)
}
