// Command user-service serves the user service API, standalone on PORT
// (default 3001) or as a Lambda function behind API Gateway.
package main

import (
	"ecommerce-stack/internal/cli"
	"ecommerce-stack/internal/service"
)

func main() {
	cli.Execute(service.User)
}
