package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           sessiond API
// @version         1.0
// @description     HTTP API for local LLM conversation sessions and streaming chat.
//
// @contact.name   sessiond maintainers
// @contact.url    https://github.com/your-org/sessiond
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
