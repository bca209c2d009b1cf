// Package gemini implements the text and lyrics generation interfaces using
// Google's Gemini API.
package gemini
