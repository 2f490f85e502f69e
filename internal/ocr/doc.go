// Package ocr turns a photo of an equation into a normalized candidate
// equation.
//
// A Recognizer converts image bytes into raw text. Two backends are provided:
// the tesseract command line program and the Gemini vision models. The Reader
// picks the candidate line out of the recognized text, normalizes it and
// caches recognitions by image digest. It never solves the equation; the
// caller decides when to run the solve pipeline.
//
// Session runs readings in the background where starting a new reading
// supersedes the outstanding one instead of cancelling it.
package ocr
