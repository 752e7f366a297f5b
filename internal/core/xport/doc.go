// Package xport decodes and writes SAS transport (XPORT v5) files.
//
// A file is a run of 80-byte header records followed by one 140-byte namestr
// per column and a body of fixed-width rows padded with blanks to a multiple
// of 80 bytes. Numeric columns hold IBM hexadecimal floats of 2 to 8 bytes;
// a leading '.', '_' or 'A'..'Z' followed by zero bytes marks a missing value.
//
// Decoder streams rows: Next returns io.EOF when the body is exhausted and
// Warnings reports any truncation found on the way.
package xport
