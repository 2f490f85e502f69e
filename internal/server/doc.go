// Package server exposes the solver and the photo reader over HTTP.
//
// Routes:
//
//	GET  /health      liveness probe
//	POST /api/solve   solve one equation, JSON in and out
//	POST /api/ocr     read a candidate equation from an uploaded photo
//
// Domain errors such as a missing '=' sign are part of a successful solve
// response; they carry an error_kind and a hint. Only malformed requests are
// rejected with a 4xx status.
package server
