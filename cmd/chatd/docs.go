package main

// General API documentation for swaggo. Run `swag init -g cmd/chatd/docs.go -d ./,./internal/httpapi -o docs` to regenerate.
//
// @title           chatd API
// @version         1.0
// @description     Streaming chat generation over a single shared model, with persistent session history.
//
// @contact.name   chatd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
