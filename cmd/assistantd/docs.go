package main

// General API documentation for swaggo. Generate with swag init, then
// build with -tags=swagger to serve it.
//
// @title           assistantd API
// @version         1.0
// @description     HTTP control surface for local speech/llm backend lifecycle.
//
// @BasePath  /
//
// @schemes http
