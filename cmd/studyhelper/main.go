// Package main provides the entry point for the studyhelper CLI.
//
// studyhelper solves school algebra equations step by step. Linear equations
// are solved by hand-style isolation, everything else through the built-in
// computer-algebra engine. Photos of worksheets can be read with OCR.
//
// Usage:
//
//	studyhelper solve "2x+7=25"
//	studyhelper solve --list worksheet.txt --view full
//	studyhelper ocr photo.jpg
//
// See --help for all available options.
package main

// main is the entry point for studyhelper.
func main() {
	Execute()
}
